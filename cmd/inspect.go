package cmd

import (
	"fmt"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/webitel/valuegraph/internal/graph"
)

// InspectSource names one cell tracked by the inspector dashboard.
type InspectSource struct {
	Name string
	Cell *graph.Cell
}

// RunInspect renders a live terminal table of each source's readiness and
// value, refreshing whenever any of them changes, until 'q' or Ctrl-C.
func RunInspect(sources []InspectSource) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("termui init: %w", err)
	}
	defer ui.Close()

	table := widgets.NewTable()
	table.Title = "Cell Graph Inspector"
	table.RowSeparator = true
	table.SetRect(0, 0, 80, len(sources)+3)
	table.Rows = rowsFor(sources)

	ui.Render(table)

	redraw := make(chan struct{}, 1)
	trigger := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}

	tokens := make([]graph.Token, len(sources))
	for i, src := range sources {
		tokens[i] = src.Cell.Notify(trigger)
	}
	defer func() {
		for i, src := range sources {
			src.Cell.Unnotify(tokens[i])
		}
	}()

	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}
		case <-redraw:
			table.Rows = rowsFor(sources)
			ui.Render(table)
		}
	}
}

func rowsFor(sources []InspectSource) [][]string {
	rows := make([][]string, len(sources)+1)
	rows[0] = []string{"Name", "Ready", "Value"}
	for i, src := range sources {
		v, ready := src.Cell.Value()
		readyStr := "no"
		valStr := "-"
		if ready {
			readyStr = "yes"
			valStr = fmt.Sprintf("%v", v)
		}
		rows[i+1] = []string{src.Name, readyStr, valStr}
	}
	return rows
}
