package cli

import "testing"

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"port", "config", "redis-addr"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Fatalf("missing persistent flag %q", name)
		}
	}

	var start, migrate bool
	for _, sub := range cmd.Commands() {
		switch sub.Name() {
		case "start":
			start = true
		case "migrate":
			migrate = true
			if sub.Flags().Lookup("dry-run") == nil {
				t.Fatalf("migrate is missing the dry-run flag")
			}
		}
	}
	if !start || !migrate {
		t.Fatalf("expected start and migrate subcommands, got start=%v migrate=%v", start, migrate)
	}
}
