package internal

import "testing"

func TestNewTableIsFree(t *testing.T) {
	tbl := NewTable(4, 8)

	if tbl.Capacity() != 4 {
		t.Errorf("Expected capacity 4, got %d", tbl.Capacity())
	}
	if tbl.FreeCount() != 4 {
		t.Errorf("Expected 4 free slots, got %d", tbl.FreeCount())
	}
	if idx := tbl.FindFirstFree(); idx != 0 {
		t.Errorf("Expected first free slot 0, got %d", idx)
	}
	for i := 0; i < tbl.Capacity(); i++ {
		if !tbl.Entry(i).Free() {
			t.Errorf("Slot %d should be free", i)
		}
	}
}

func TestFirstFreeIsLowestIndex(t *testing.T) {
	tbl := NewTable(5, 8)
	for i := 0; i < 5; i++ {
		tbl.Set(i, string(rune('a'+i)), []byte("v"), TierRAM)
	}
	if idx := tbl.FindFirstFree(); idx != -1 {
		t.Fatalf("Expected full table, got free slot %d", idx)
	}

	tbl.Clear(3)
	tbl.Clear(1)
	if idx := tbl.FindFirstFree(); idx != 1 {
		t.Errorf("Expected lowest free slot 1, got %d", idx)
	}
	if tbl.FreeCount() != 2 {
		t.Errorf("Expected 2 free slots, got %d", tbl.FreeCount())
	}

	tbl.Set(1, "x", []byte("v"), TierNVM)
	if idx := tbl.FindFirstFree(); idx != 3 {
		t.Errorf("Expected free slot 3, got %d", idx)
	}
}

func TestFindByKey(t *testing.T) {
	tbl := NewTable(3, 8)
	tbl.Set(0, "k1", []byte("v1"), TierRAM)
	tbl.Set(2, "k2", []byte("v2"), TierNVM)

	tests := []struct {
		key  string
		want int
	}{
		{"k1", 0},
		{"k2", 2},
		{"k3", -1},
		{"k", -1},   // prefix only
		{"k10", -1}, // longer key
		{"", -1},
	}
	for _, tt := range tests {
		if got := tbl.FindByKey(tt.key); got != tt.want {
			t.Errorf("FindByKey(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestSetCopiesValue(t *testing.T) {
	tbl := NewTable(1, 8)
	value := []byte("abc")
	tbl.Set(0, "k", value, TierRAM)
	value[0] = 'X'

	if got := string(tbl.Entry(0).Value); got != "abc" {
		t.Errorf("Expected stored copy abc, got %s", got)
	}
}

func TestUpdateKeepsTier(t *testing.T) {
	tbl := NewTable(1, 8)
	tbl.Set(0, "k", []byte("first"), TierNVM)
	tbl.Update(0, []byte("second"))

	e := tbl.Entry(0)
	if string(e.Value) != "second" {
		t.Errorf("Expected value second, got %s", e.Value)
	}
	if e.Tier != TierNVM {
		t.Errorf("Expected tier nvm, got %s", e.Tier)
	}
	if tbl.FreeCount() != 0 {
		t.Errorf("Expected 0 free slots, got %d", tbl.FreeCount())
	}
}

func TestClearZeroesBuffer(t *testing.T) {
	tbl := NewTable(1, 8)
	tbl.Set(0, "k", []byte("secret"), TierRAM)
	tbl.Clear(0)

	e := tbl.Entry(0)
	if !e.Free() {
		t.Fatalf("Slot should be free after Clear")
	}
	for i, b := range e.Value[:cap(e.Value)] {
		if b != 0 {
			t.Fatalf("Byte %d not zeroed: %v", i, b)
		}
	}
}

func TestResetAndCounts(t *testing.T) {
	tbl := NewTable(4, 8)
	tbl.Set(0, "a", []byte("1"), TierRAM)
	tbl.Set(1, "b", []byte("2"), TierNVM)
	tbl.Set(2, "c", []byte("3"), TierNVM)

	free, ram, nvm := tbl.Counts()
	if free != 1 || ram != 1 || nvm != 2 {
		t.Errorf("Expected counts 1/1/2, got %d/%d/%d", free, ram, nvm)
	}

	tbl.Reset()
	free, ram, nvm = tbl.Counts()
	if free != 4 || ram != 0 || nvm != 0 {
		t.Errorf("Expected counts 4/0/0 after reset, got %d/%d/%d", free, ram, nvm)
	}
	if tbl.FreeCount() != 4 || tbl.FindByKey("a") != -1 {
		t.Errorf("Reset should free every slot")
	}
}

func TestTierString(t *testing.T) {
	for tier, want := range map[Tier]string{TierNone: "none", TierNVM: "nvm", TierRAM: "ram", Tier(7): "Tier(7)"} {
		if got := tier.String(); got != want {
			t.Errorf("Tier(%d).String() = %s, want %s", uint8(tier), got, want)
		}
	}
	if TierNone.Valid() || !TierRAM.Valid() || !TierNVM.Valid() {
		t.Errorf("Only ram and nvm are valid tiers")
	}
}
