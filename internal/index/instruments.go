package index

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/wyfcoding/datacollector/pkg/logger"
)

const (
	// DateLayout instruments 文件中的日期格式
	DateLayout = "2006-01-02"
	// OpenEndDate 仍在指数中的成分股的结束日
	OpenEndDate = "2099-12-31"
)

// ParseInstruments 把成分股历史写成 qlib instruments 文件：
// {qlib_dir}/instruments/{name}.txt，每行 "symbol\tstart\tend"，无表头
func ParseInstruments(ctx context.Context, idx Index, opts Options) (string, error) {
	logger.Info(ctx, "start parse companies", "index", idx.Name())

	rows, err := idx.NewCompanies(ctx)
	if err != nil {
		return "", err
	}
	rows = slices.Clone(rows)
	SortConstituents(rows)

	dir, err := opts.Dir("instruments")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create instruments dir: %w", err)
	}
	path := filepath.Join(dir, FileStem(idx.Name())+".txt")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create instruments file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range rows {
		end := OpenEndDate
		if r.Thru != nil {
			end = r.Thru.Format(DateLayout)
		}
		if _, err := fmt.Fprintf(w, "%s%s\t%s\t%s\n", opts.InstPrefix, r.Symbol(), r.From.Format(DateLayout), end); err != nil {
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	logger.Info(ctx, "instruments saved", "index", idx.Name(), "path", path, "rows", len(rows))
	return path, nil
}
