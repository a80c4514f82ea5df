package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/autobid/internal/domain"
	"github.com/alejandrodnm/autobid/internal/ports"
)

// PrintOrders imprime las órdenes en orden de display (#N = posición).
// catalog es opcional; si falla, se muestra el condition id abreviado.
func (c *Console) PrintOrders(ctx context.Context, orders []domain.Order, catalog ports.ConditionCatalog) {
	rows := make([][]string, 0, len(orders))
	active := 0
	for i, o := range orders {
		if o.IsActive() {
			active++
		}
		rows = append(rows, []string{
			fmt.Sprintf("#%d", i+1),
			statusLabel(o),
			strategyLabel(o.Strategy),
			instruction(ctx, o, catalog),
			expiresLabel(o),
			o.ID,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n── ORDERS (%d, %d active) ──\n", len(orders), active)
	if len(orders) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Status", "Strategy", "Instruction", "Expires", "ID")
	for _, r := range rows {
		table.Append(r)
	}
	table.Render()
}

func statusLabel(o domain.Order) string {
	if o.AutoPausedAt != nil {
		return "paused (expired)"
	}
	return string(o.Status)
}

func strategyLabel(k domain.StrategyKind) string {
	switch k {
	case domain.StrategyCopyTrade:
		return "copy"
	case domain.StrategyConditionMatch:
		return "condition"
	}
	return string(k)
}

func expiresLabel(o domain.Order) string {
	if o.Expiration == nil {
		return "-"
	}
	return o.Expiration.Local().Format(time.DateTime)
}

func instruction(ctx context.Context, o domain.Order, catalog ports.ConditionCatalog) string {
	switch {
	case o.CopyTrade != nil:
		return fmt.Sprintf("copy %s +%s", o.CopyTrade.Target, o.CopyTrade.Increment.String())
	case o.ConditionMatch != nil:
		legs := make([]string, 0, len(o.ConditionMatch.Selections))
		for _, sel := range o.ConditionMatch.Selections {
			legs = append(legs, fmt.Sprintf("%s %s", conditionLabel(ctx, sel.ConditionID, catalog), sel.Outcome))
		}
		return fmt.Sprintf("%s @ %d%%", strings.Join(legs, " & "), o.ConditionMatch.TargetOdds)
	}
	return o.Summary()
}

func conditionLabel(ctx context.Context, id string, catalog ports.ConditionCatalog) string {
	if catalog == nil {
		return domain.ShortHex(id)
	}
	cond, err := catalog.Resolve(ctx, id)
	if err != nil || cond.Label == "" {
		if err != nil {
			slog.Debug("notify: catalog lookup failed", "condition", id, "err", err)
		}
		return domain.ShortHex(id)
	}
	return truncate(cond.Label, 40)
}
