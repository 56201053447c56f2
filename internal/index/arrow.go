package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/wyfcoding/datacollector/pkg/logger"
)

// ConstituentSchema 成分股表的 Arrow schema，每条记录一行，五列
var ConstituentSchema = arrow.NewSchema([]arrow.Field{
	{Name: "gvkey", Type: arrow.BinaryTypes.String},
	{Name: "iid", Type: arrow.BinaryTypes.String},
	{Name: "gvkeyx", Type: arrow.BinaryTypes.String},
	{Name: "from", Type: arrow.FixedWidthTypes.Date32},
	{Name: "thru", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
}, nil)

// ConstituentBatch 把成分股记录转换为 Arrow record batch，调用方负责 Release
func ConstituentBatch(mem memory.Allocator, rows []Constituent) arrow.RecordBatch {
	b := array.NewRecordBuilder(mem, ConstituentSchema)
	defer b.Release()

	gvkey := b.Field(0).(*array.StringBuilder)
	iid := b.Field(1).(*array.StringBuilder)
	gvkeyx := b.Field(2).(*array.StringBuilder)
	from := b.Field(3).(*array.Date32Builder)
	thru := b.Field(4).(*array.Date32Builder)

	for _, r := range rows {
		gvkey.Append(r.Gvkey)
		iid.Append(r.Iid)
		gvkeyx.Append(r.Gvkeyx)
		from.Append(arrow.Date32FromTime(r.From))
		if r.Thru == nil {
			thru.AppendNull()
		} else {
			thru.Append(arrow.Date32FromTime(*r.Thru))
		}
	}
	return b.NewRecordBatch()
}

// SaveNewCompanies 把成分股历史写为 Arrow IPC 流文件：{qlib_dir}/constituents/{name}.arrows
func SaveNewCompanies(ctx context.Context, idx Index, opts Options) (string, error) {
	rows, err := idx.NewCompanies(ctx)
	if err != nil {
		return "", err
	}

	dir, err := opts.Dir("constituents")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create constituents dir: %w", err)
	}
	path := filepath.Join(dir, FileStem(idx.Name())+".arrows")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create constituents file: %w", err)
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	record := ConstituentBatch(mem, rows)
	defer record.Release()

	writer := ipc.NewWriter(f, ipc.WithSchema(ConstituentSchema), ipc.WithAllocator(mem))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to write IPC record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close IPC writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	logger.Info(ctx, "constituents saved", "index", idx.Name(), "path", path, "rows", len(rows))
	return path, nil
}
