package browse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/dishdex/internal/dishes"
)

type detailDoneMsg struct {
	seq    uint64
	id     string
	record dishes.Record
	err    error
}

// DetailView shows a single dish.
type DetailView struct {
	source Getter
	logger *slog.Logger

	id      string
	record  dishes.Record
	loading bool
	err     error

	alive       bool
	seq         uint64
	cancelFetch context.CancelFunc
}

func NewDetailView(source Getter, logger *slog.Logger) DetailView {
	if logger == nil {
		logger = slog.Default()
	}
	return DetailView{source: source, logger: logger, alive: true}
}

// Open starts loading id. A previous load still in flight is dropped.
func (d *DetailView) Open(id string) tea.Cmd {
	d.cancelInflight()
	d.seq++
	d.id = id
	d.record = dishes.Record{}
	d.err = nil
	d.loading = true

	seq := d.seq
	ctx, cancel := context.WithCancel(context.Background())
	d.cancelFetch = cancel
	source := d.source
	return func() tea.Msg {
		rec, err := source.Get(ctx, id)
		return detailDoneMsg{seq: seq, id: id, record: rec, err: err}
	}
}

// ID is the dish being shown.
func (d *DetailView) ID() string { return d.id }

// Record returns the loaded dish.
func (d *DetailView) Record() (dishes.Record, bool) {
	if d.loading || d.err != nil || d.id == "" {
		return dishes.Record{}, false
	}
	return d.record, true
}

func (d *DetailView) Handle(msg tea.Msg) tea.Cmd {
	done, ok := msg.(detailDoneMsg)
	if !ok || !d.alive || done.seq != d.seq {
		return nil
	}
	d.cancelInflight()
	d.loading = false
	if done.err != nil {
		d.logger.Warn("dish fetch failed", "id", done.id, "error", done.err)
		d.err = done.err
		return nil
	}
	d.record = done.record
	return nil
}

func (d *DetailView) Close() {
	d.alive = false
	d.cancelInflight()
}

func (d *DetailView) cancelInflight() {
	if d.cancelFetch != nil {
		d.cancelFetch()
		d.cancelFetch = nil
	}
}

func (d *DetailView) View(width int) string {
	switch {
	case d.loading:
		return dimStyle.Render("Loading…")
	case errors.Is(d.err, dishes.ErrNotFound):
		return errorStyle.Render(fmt.Sprintf("No dish with id %s", Clean(d.id)))
	case d.err != nil:
		return errorStyle.Render("Could not load dish: " + Clean(d.err.Error()))
	}
	return RenderRecord(d.record, width)
}

// RenderRecord lays a dish out as label/value rows. Unknown service fields
// follow the known ones in key order.
func RenderRecord(rec dishes.Record, width int) string {
	valueWidth := width - 18
	if valueWidth < 20 {
		valueWidth = 60
	}
	row := func(label, value string) string {
		return labelStyle.Render(label) + " " + Truncate(Clean(value), valueWidth)
	}

	var lines []string
	lines = append(lines, titleStyle.Render(Clean(dishes.Display(rec.Name))))
	lines = append(lines, "")
	lines = append(lines, row("ID", dishes.Display(rec.ID)))
	for _, f := range dishes.SortFields[1:] {
		lines = append(lines, row(dishes.ColumnTitle(f), rec.Field(f)))
	}
	lines = append(lines, row("Ingredients", dishes.Display(rec.Ingredients)))
	for _, k := range rec.ExtraKeys() {
		lines = append(lines, row(k, dishes.Display(rec.Extra[k])))
	}
	return strings.Join(lines, "\n")
}
