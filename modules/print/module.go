package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/vk/ecow/internal/action"
	"github.com/vk/ecow/internal/ctxlog"
	"github.com/vk/ecow/internal/model"
)

// Kind is the part kind handled by this module.
const Kind = "print"

// Module implements the action.Module interface for this package.
type Module struct {
	// Out receives the printed parts. Nil means os.Stdout.
	Out io.Writer

	mu sync.Mutex
}

// OnBuildPrint writes the part and its inputs, sorted, to the module output.
func (m *Module) OnBuildPrint(ctx context.Context, u *model.Unit, p model.Part) error {
	ctxlog.FromContext(ctx).Debug("Printing part.", "unit", u.Name, "part", p.Name)

	out := m.Out
	if out == nil {
		out = os.Stdout
	}

	inputs := slices.Clone(p.Inputs)
	slices.Sort(inputs)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := fmt.Fprintf(out, "%s/%s\n", u.Name, p.Name); err != nil {
		return err
	}
	if len(inputs) == 0 {
		_, err := fmt.Fprintln(out, "      (no inputs)")
		return err
	}
	for _, in := range inputs {
		if _, err := fmt.Fprintf(out, "      %s\n", in); err != nil {
			return err
		}
	}
	return nil
}

// Register registers the action with the registry.
func (m *Module) Register(r *action.Registry) {
	r.Register(Kind, m.OnBuildPrint)
}
