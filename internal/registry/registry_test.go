package registry

import (
	"context"
	"testing"

	"solenoid-ac/internal/board"
	"solenoid-ac/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Boards: []board.Config{
			{Name: "local", Backend: board.BackendFake},
		},
		Solenoids: []config.Solenoid{
			{Name: "valve", Model: config.ModelStatic, Board: "local", ControlPin: "GPIO17", PWMPin: "GPIO18"},
			{Name: "pump", Model: config.ModelAlternating, Board: "local", Pin1: "GPIO23", Pin2: "GPIO24"},
		},
	}
}

func TestBuild_ListAndGet(t *testing.T) {
	r, err := Build(testConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer r.Close()

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("List()=%d want 2", len(list))
	}
	if list[0].Name() != "valve" || list[1].Name() != "pump" {
		t.Fatalf("List() order=%q,%q want config order", list[0].Name(), list[1].Name())
	}

	sw, ok := r.Get("pump")
	if !ok {
		t.Fatalf("Get(pump) missing")
	}
	if pos, err := sw.GetPosition(context.Background()); err != nil || pos != 0 {
		t.Fatalf("GetPosition=%d,%v want 0,nil", pos, err)
	}
	if _, ok := r.Get("nope"); ok {
		t.Fatalf("Get(nope) should miss")
	}
}

func TestBuild_UnknownBackendFails(t *testing.T) {
	cfg := testConfig()
	cfg.Boards[0].Backend = "bogus"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestBuild_UnresolvedBoardFails(t *testing.T) {
	cfg := testConfig()
	cfg.Solenoids[0].Board = "other"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error for unresolved board dependency")
	}
}

func TestClose_Idempotent(t *testing.T) {
	r, err := Build(testConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := r.List()[1].SetPosition(context.Background(), 1); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	r.Close()
	r.Close()
}
