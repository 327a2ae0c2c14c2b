package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"showroom-gateway/internal/models"
)

type memInventory struct {
	vehicles  map[string]*models.Vehicle
	createErr error
	updates   int
}

func newMemInventory() *memInventory {
	return &memInventory{vehicles: map[string]*models.Vehicle{}}
}

func (m *memInventory) FindVehicle(_ context.Context, _ string, code string) (*models.Vehicle, error) {
	return m.vehicles[code], nil
}

func (m *memInventory) CreateVehicle(_ context.Context, v *models.Vehicle) error {
	if m.createErr != nil {
		return m.createErr
	}
	v.Code = fmt.Sprintf("V%04d", len(m.vehicles)+1)
	m.vehicles[v.Code] = v
	return nil
}

func (m *memInventory) UpdatePrice(_ context.Context, _ string, code string, price int64) error {
	m.updates++
	m.vehicles[code].Price = price
	return nil
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestUploadWorkflowHappyPath(t *testing.T) {
	m := NewMachine(30 * time.Minute)
	inv := newMemInventory()
	ctx := context.Background()

	s, prompt, err := m.Start(VehicleUpload, "7", t0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Step != UploadBasics || !strings.Contains(prompt, "1/4") {
		t.Fatalf("unexpected start %+v %q", s, prompt)
	}

	inputs := []Input{
		{Text: "Toyota Avanza 2019"},
		{Text: "Hitam, matic, 130jt"},
		{Text: "45rb km"},
		{MediaRef: "media-1"},
		{MediaRef: "media-2"},
	}
	for i, in := range inputs {
		res, err := m.Advance(ctx, inv, "t1", s, in, t0.Add(time.Duration(i+1)*time.Minute))
		if err != nil {
			t.Fatalf("Advance(%+v): %v", in, err)
		}
		if res.Phase != PhaseCollecting {
			t.Fatalf("Advance(%+v) phase = %s", in, res.Phase)
		}
		s = res.State
	}
	if s.Step != UploadPhotos || len(s.Upload.Photos) != 2 {
		t.Fatalf("state before done = %+v", s)
	}

	res, err := m.Advance(ctx, inv, "t1", s, Input{Text: "selesai"}, t0.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("Advance(selesai): %v", err)
	}
	if res.Phase != PhaseDone || res.State != nil {
		t.Fatalf("expected done, got %+v", res)
	}

	v := inv.vehicles["V0001"]
	if v == nil {
		t.Fatalf("vehicle not created; reply %q", res.Reply)
	}
	if v.Brand != "Toyota" || v.Model != "Avanza" || v.Year != 2019 || v.Color != "Hitam" ||
		v.Transmission != "automatic" || v.Price != 130_000_000 || v.MileageKm != 45_000 || v.CreatedBy != "7" {
		t.Errorf("vehicle = %+v", v)
	}
	if string(v.Photos) != `["media-1","media-2"]` {
		t.Errorf("photos = %s", v.Photos)
	}
	if !strings.Contains(res.Reply, "V0001") || !strings.Contains(res.Reply, "Rp130.000.000") {
		t.Errorf("reply = %q", res.Reply)
	}
}

func TestParseFailureRepromptsWithoutAbandoning(t *testing.T) {
	m := NewMachine(30 * time.Minute)
	inv := newMemInventory()
	s, _, _ := m.Start(VehicleUpload, "7", t0)

	res, err := m.Advance(context.Background(), inv, "t1", s, Input{Text: "Toyota Avanza 2019"}, t0)
	if err != nil {
		t.Fatal(err)
	}
	s = res.State

	for i := 1; i <= 3; i++ {
		res, err = m.Advance(context.Background(), inv, "t1", s, Input{Text: "mobilnya bagus"}, t0.Add(time.Minute))
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if res.Phase != PhaseCollecting || res.State.Step != UploadSpecs || res.State.Retries != i {
			t.Fatalf("attempt %d: %+v", i, res.State)
		}
		if !strings.Contains(res.Reply, "2/4") {
			t.Errorf("reprompt missing step prompt: %q", res.Reply)
		}
		if res.State.Upload.Brand != "Toyota" {
			t.Fatal("collected fields lost on reprompt")
		}
		s = res.State
	}
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	m := NewMachine(0)
	s, _, _ := m.Start(VehicleUpload, "7", t0)
	s.Suspend(t0)

	res, err := m.Advance(context.Background(), newMemInventory(), "t1", s, Input{Text: "Honda Jazz 2015"}, t0.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if s.Step != UploadBasics || s.Upload.Brand != "" || !s.Suspended {
		t.Fatalf("input state mutated: %+v", s)
	}
	if res.State.Suspended || res.State.Step != UploadSpecs {
		t.Fatalf("result = %+v", res.State)
	}
}

func TestCommitFailureIsReturned(t *testing.T) {
	m := NewMachine(0)
	inv := newMemInventory()
	inv.createErr = errors.New("unique violation")

	s := &State{Type: VehicleUpload, Step: UploadPhotos, Upload: &UploadFields{
		Brand: "Toyota", Model: "Avanza", Year: 2019, Color: "Hitam", Transmission: "manual", Price: 1e8,
	}}
	_, err := m.Advance(context.Background(), inv, "t1", s, Input{Text: "skip"}, t0)
	if err == nil || !strings.Contains(err.Error(), "unique violation") {
		t.Fatalf("err = %v", err)
	}
}

func TestEditWorkflow(t *testing.T) {
	m := NewMachine(0)
	inv := newMemInventory()
	inv.vehicles["V0003"] = &models.Vehicle{Code: "V0003", Brand: "Honda", Model: "Brio", Year: 2018, Price: 120_000_000, Status: "available"}
	inv.vehicles["V0004"] = &models.Vehicle{Code: "V0004", Status: "sold"}
	ctx := context.Background()

	s, _, err := m.Start(VehicleEdit, "7", t0)
	if err != nil {
		t.Fatal(err)
	}

	res, _ := m.Advance(ctx, inv, "t1", s, Input{Text: "V9999"}, t0)
	if res.State.Step != EditSelect || !strings.Contains(res.Reply, "tidak ditemukan") {
		t.Fatalf("unknown code: %+v %q", res.State, res.Reply)
	}
	res, _ = m.Advance(ctx, inv, "t1", res.State, Input{Text: "v0004"}, t0)
	if res.State.Step != EditSelect || !strings.Contains(res.Reply, "terjual") {
		t.Fatalf("sold code: %q", res.Reply)
	}

	res, err = m.Advance(ctx, inv, "t1", res.State, Input{Text: "v0003"}, t0)
	if err != nil || res.State.Step != EditPrice || res.State.Edit.CurrentPrice != 120_000_000 {
		t.Fatalf("select: %+v %v", res.State, err)
	}
	if inv.updates != 0 {
		t.Fatal("price updated before commit")
	}

	res, err = m.Advance(ctx, inv, "t1", res.State, Input{Text: "115jt"}, t0)
	if err != nil || res.Phase != PhaseDone {
		t.Fatalf("commit: %+v %v", res, err)
	}
	if inv.vehicles["V0003"].Price != 115_000_000 {
		t.Errorf("price = %d", inv.vehicles["V0003"].Price)
	}
}

func TestExpired(t *testing.T) {
	m := NewMachine(30 * time.Minute)
	s, _, _ := m.Start(VehicleUpload, "7", t0)

	if m.Expired(s, t0.Add(30*time.Minute)) {
		t.Error("expired at exactly the window")
	}
	if !m.Expired(s, t0.Add(31*time.Minute)) {
		t.Error("not expired past the window")
	}
	s.Suspend(t0.Add(5 * time.Minute))
	if !m.Expired(s, t0.Add(31*time.Minute)) {
		t.Error("suspension must not refresh activity")
	}
	if NewMachine(0).Expired(s, t0.Add(24*time.Hour)) {
		t.Error("zero inactivity must disable expiry")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s, _, _ := NewMachine(0).Start(VehicleEdit, "7", t0)
	s.Suspend(t0)
	raw, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != VehicleEdit || got.Edit == nil || !got.Suspended || got.SuspendedAt == nil {
		t.Fatalf("decoded = %+v", got)
	}

	if s, err := Decode(""); s != nil || err != nil {
		t.Fatalf("Decode(\"\") = %v, %v", s, err)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"130jt", 130_000_000},
		{"130 juta", 130_000_000},
		{"127,5jt", 127_500_000},
		{"Rp 130.000.000", 130_000_000},
		{"130000000", 130_000_000},
		{"1,2m", 1_200_000_000},
		{"1.2 miliar", 1_200_000_000},
		{"130", 130_000_000},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParsePrice(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []string{"", "murah", "500rb", "hitam"} {
		if _, err := ParsePrice(bad); err == nil {
			t.Errorf("ParsePrice(%q) should fail", bad)
		}
	}
}

func TestParseSpecs(t *testing.T) {
	color, trans, price, err := parseSpecs("130jt, MT, silver")
	if err != nil || color != "Silver" || trans != "manual" || price != 130_000_000 {
		t.Fatalf("got %q %q %d %v", color, trans, price, err)
	}
	if _, _, _, err := parseSpecs("Hitam, 130jt"); err == nil {
		t.Fatal("two parts should fail")
	}
	if _, _, _, err := parseSpecs("Hitam, bagus, 130jt"); err == nil {
		t.Fatal("unknown transmission should fail")
	}
}

func TestParseMileage(t *testing.T) {
	tests := map[string]int{
		"45rb km":   45_000,
		"45.000":    45_000,
		"45000 km":  45_000,
		"12,5 ribu": 12_500,
	}
	for in, want := range tests {
		if got, err := parseMileage(in); err != nil || got != want {
			t.Errorf("parseMileage(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	if _, err := parseMileage("jauh"); err == nil {
		t.Error("expected error")
	}
}

func TestFormatRupiah(t *testing.T) {
	tests := map[int64]string{0: "Rp0", 950: "Rp950", 45_000: "Rp45.000", 130_000_000: "Rp130.000.000"}
	for in, want := range tests {
		if got := FormatRupiah(in); got != want {
			t.Errorf("FormatRupiah(%d) = %q, want %q", in, got, want)
		}
	}
}
