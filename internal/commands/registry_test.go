package commands

import (
	"context"
	"flag"
	"io"
	"testing"

	"tabdash/internal/config"
)

type stubCommand struct {
	name    string
	aliases []string
}

func (c stubCommand) Name() string                   { return c.name }
func (c stubCommand) Aliases() []string              { return c.aliases }
func (c stubCommand) Synopsis() string               { return "" }
func (c stubCommand) Usage() string                  { return c.name }
func (c stubCommand) NeedsProviders() bool           { return false }
func (c stubCommand) RegisterFlags(fs *flag.FlagSet) {}

func (c stubCommand) Run(ctx context.Context, cfg *config.Config, svc *Services, args []string, out, errOut io.Writer) int {
	return 0
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubCommand{name: "beta", aliases: []string{"b"}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(stubCommand{name: "alpha"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if cmd, ok := r.Find("b"); !ok || cmd.Name() != "beta" {
		t.Error("expected alias lookup to resolve to the primary command")
	}
	if _, ok := r.Find("missing"); ok {
		t.Error("expected unknown name to miss")
	}

	if err := r.Register(stubCommand{name: "beta"}); err == nil {
		t.Error("expected duplicate name to be rejected")
	}
	if err := r.Register(stubCommand{name: "gamma", aliases: []string{"b"}}); err == nil {
		t.Error("expected duplicate alias to be rejected")
	}
	if _, ok := r.Find("gamma"); ok {
		t.Error("rejected registration must not be partially applied")
	}

	all := r.All()
	if len(all) != 2 || all[0].Name() != "alpha" || all[1].Name() != "beta" {
		names := make([]string, len(all))
		for i, c := range all {
			names[i] = c.Name()
		}
		t.Errorf("expected [alpha beta], got %v", names)
	}
}
