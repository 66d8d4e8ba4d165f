// Package report 导出模拟结果：成交与盈亏历史的 CSV，以及文本摘要。
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"hft-sim-go/pnl"
	"hft-sim-go/sim"
)

var tradeHeader = []string{"Timestamp", "Price", "Quantity", "Side", "TradeValue", "TradeID"}

var snapshotHeader = []string{
	"Timestamp", "RealizedPnL", "UnrealizedPnL", "TotalPnL",
	"Position", "MarkPrice", "DailyPnL", "CumulativePnL",
}

// WriteTradesCSV 把成交历史写成 CSV。
func WriteTradesCSV(w io.Writer, trades []pnl.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tr := range trades {
		rec := []string{
			formatTime(tr.Timestamp),
			formatFloat(tr.Price),
			formatFloat(tr.Quantity),
			formatFloat(tr.Side),
			formatFloat(tr.Value),
			strconv.FormatInt(tr.ID, 10),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write trade %d: %w", tr.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSnapshotsCSV 把盈亏快照历史写成 CSV。
func WriteSnapshotsCSV(w io.Writer, snaps []pnl.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, s := range snaps {
		rec := []string{
			formatTime(s.Timestamp),
			formatFloat(s.Realized),
			formatFloat(s.Unrealized),
			formatFloat(s.Total),
			formatFloat(s.Position),
			formatFloat(s.MarkPrice),
			formatFloat(s.DailyPnL),
			formatFloat(s.CumulativePnL),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write snapshot %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveTradesCSV 把成交历史写入文件。
func SaveTradesCSV(path string, trades []pnl.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteTradesCSV(f, trades)
}

// SaveSnapshotsCSV 把盈亏快照历史写入文件。
func SaveSnapshotsCSV(path string, snaps []pnl.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteSnapshotsCSV(f, snaps)
}

// Summary 生成最终文本报告。lookback 为波动率/夏普比率的回看窗口。
func Summary(st sim.Status, tracker *pnl.Tracker, lookback int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Simulation Report: %s ===\n", st.Symbol)
	fmt.Fprintf(&b, "Elapsed:          %s\n", st.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "Ticks:            %d\n", st.Ticks)
	fmt.Fprintf(&b, "Orders placed:    %d\n", st.OrdersPlaced)
	fmt.Fprintf(&b, "Trades executed:  %d\n", tracker.TradeCount())
	fmt.Fprintf(&b, "Volume:           %.2f\n", st.Volume)
	fmt.Fprintf(&b, "Halted:           %v\n", st.Halted)
	b.WriteString("\n--- Market ---\n")
	fmt.Fprintf(&b, "Final price:      %.4f\n", st.CurrentPrice)
	fmt.Fprintf(&b, "Best bid/ask:     %.4f / %.4f\n", st.BestBid, st.BestAsk)
	fmt.Fprintf(&b, "Spread:           %.4f\n", st.Spread)
	fmt.Fprintf(&b, "Realized vol:     %.4f\n", st.RealizedVol)
	b.WriteString("\n--- PnL ---\n")
	fmt.Fprintf(&b, "Position:         %.2f\n", tracker.Position())
	fmt.Fprintf(&b, "Average cost:     %.4f\n", tracker.AverageCost())
	fmt.Fprintf(&b, "Realized PnL:     %.2f\n", tracker.RealizedPnL())
	fmt.Fprintf(&b, "Unrealized PnL:   %.2f\n", tracker.UnrealizedPnL())
	fmt.Fprintf(&b, "Total PnL:        %.2f\n", tracker.TotalPnL())
	fmt.Fprintf(&b, "Max drawdown:     %.2f\n", tracker.MaxDrawdown())
	fmt.Fprintf(&b, "Sharpe ratio:     %.4f\n", tracker.SharpeRatio(lookback))
	fmt.Fprintf(&b, "Win rate:         %.2f%%\n", tracker.WinRate()*100)

	pf := tracker.ProfitFactor()
	if pf == 0 || pf < 1e308 {
		fmt.Fprintf(&b, "Profit factor:    %.4f\n", pf)
	} else {
		b.WriteString("Profit factor:    inf\n")
	}

	return b.String()
}

func formatTime(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
