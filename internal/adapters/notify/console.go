package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/autobid/internal/domain"
)

// Console implementa ports.Notifier escribiendo a un io.Writer.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// NotifyLog imprime una línea por entrada del audit log, en cuanto se escribe.
func (c *Console) NotifyLog(_ context.Context, e domain.LogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] %s %-6s %s\n",
		e.CreatedAt.Local().Format("15:04:05"),
		severityIcon(e.Severity),
		e.Kind,
		e.Message,
	)
	return err
}

// PrintLog imprime el audit log completo, más reciente primero.
func (c *Console) PrintLog(entries []domain.LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n── AUDIT LOG (%d) ──\n", len(entries))
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "  (empty)")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Sev", "Kind", "Message", "Order")
	for _, e := range entries {
		order := ""
		if e.Metadata != nil {
			order = e.Metadata.OrderLabel
		}
		table.Append(
			e.CreatedAt.Local().Format(time.DateTime),
			severityIcon(e.Severity),
			string(e.Kind),
			e.Message,
			truncate(order, 40),
		)
	}
	table.Render()
}

func severityIcon(s domain.Severity) string {
	switch s {
	case domain.SeveritySuccess:
		return "OK"
	case domain.SeverityWarning:
		return "WARN"
	case domain.SeverityError:
		return "ERR"
	default:
		return "INFO"
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
