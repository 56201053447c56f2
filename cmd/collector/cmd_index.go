package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	compustatapp "github.com/wyfcoding/datacollector/internal/compustat/application"
	"github.com/wyfcoding/datacollector/internal/index"
)

var (
	indexActions     = []string{"bench-start", "calendar", "new-companies", "parse-instruments", "save-new-companies"}
	compustatActions = append([]string{"record", "prices"}, indexActions...)
)

func runCompustat(cmd *cobra.Command, args []string) error {
	gvkeyx, action := args[0], args[1]
	if !slices.Contains(compustatActions, action) {
		return fmt.Errorf("%w: unknown action %q, want one of %s", index.ErrValidation, action, joinActions(compustatActions))
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	idx, err := a.compustatService().Open(ctx, gvkeyx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch action {
	case "record":
		return writeJSON(out, compustatapp.ToIndexDTO(idx.Record()))
	case "prices":
		rows, err := idx.DailyPrices(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, compustatapp.ToDailyPriceDTOs(rows))
	}
	return runIndexAction(ctx, out, idx, action, a.opts, a.sender())
}

func runPano(cmd *cobra.Command, args []string) error {
	name, action := args[0], args[1]
	if !slices.Contains(indexActions, action) {
		return fmt.Errorf("%w: unknown action %q, want one of %s", index.ErrValidation, action, joinActions(indexActions))
	}
	filter, err := buildFilter(panoFilter, panoAnd, panoOr)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	idx, err := a.panoIndex(ctx, name, filter)
	if err != nil {
		return err
	}
	return runIndexAction(ctx, cmd.OutOrStdout(), idx, action, a.opts, a.sender())
}

// sender 仅在 --publish 且配置了 Kafka 时返回生产者
func (a *app) sender() index.Sender {
	if !publish || a.producer == nil {
		return nil
	}
	return a.producer
}

// runIndexAction 执行 Index 契约上的通用操作，结果写到 w
func runIndexAction(ctx context.Context, w io.Writer, idx index.Index, action string, opts index.Options, s index.Sender) error {
	switch action {
	case "bench-start":
		d, err := idx.BenchStartDate(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, d.Format(index.DateLayout))
		return err
	case "calendar":
		dates, err := idx.CalendarList(ctx)
		if err != nil {
			return err
		}
		for _, d := range dates {
			if _, err := fmt.Fprintln(w, d.Format(index.DateLayout)); err != nil {
				return err
			}
		}
		return nil
	case "new-companies":
		rows, err := idx.NewCompanies(ctx)
		if err != nil {
			return err
		}
		if err := writeJSON(w, compustatapp.ToConstituentDTOs(rows)); err != nil {
			return err
		}
		return publishConstituents(ctx, w, idx, s)
	case "parse-instruments":
		path, err := index.ParseInstruments(ctx, idx, opts)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, path)
		return err
	case "save-new-companies":
		path, err := index.SaveNewCompanies(ctx, idx, opts)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, path); err != nil {
			return err
		}
		return publishConstituents(ctx, w, idx, s)
	default:
		return fmt.Errorf("%w: unknown action %q", index.ErrValidation, action)
	}
}

func publishConstituents(ctx context.Context, w io.Writer, idx index.Index, s index.Sender) error {
	if s == nil {
		return nil
	}
	n, err := index.PublishNewCompanies(ctx, idx, s)
	if err != nil {
		return fmt.Errorf("publish constituents: %w", err)
	}
	_, err = fmt.Fprintf(w, "published %d constituents\n", n)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
