package intent

import "testing"

func TestClassifyStaff(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		text string
		want string
	}{
		{"total sales", "get_report/sales_report"},
		{"Sales Report", "get_report/sales_report"},
		{"laporan penjualan bulan ini", "get_report/sales_report"},
		{"cek stok", "get_report/inventory_report"},
		{"rekap leads", "get_report/lead_report"},
		{"laporan", "get_report/sales_report"},
		{"upload", "upload_vehicle"},
		{"tambah mobil baru", "upload_vehicle"},
		{"ubah harga", "edit_vehicle"},
		{"terjual PM-0003 125jt", "mark_sold"},
		{"ai off", "ai_toggle"},
		{"AI status", "ai_status"},
		{"batal", "cancel"},
		{"menu", "help"},
		{"Hitam, matic, 130jt", ""},
		{"Toyota Avanza 2019", ""},
		{"45rb km", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := c.Classify(tt.text, AudienceStaff)
			if got.String() != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got.String(), tt.want)
			}
		})
	}
}

func TestClassifyCustomer(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		text string
		want Name
	}{
		{"Halo", Greeting},
		{"selamat pagi!", Greeting},
		{"alamat showroom dimana?", LocationInquiry},
		{"jam buka hari minggu?", BusinessHours},
		{"saya mau bicara dengan sales", HumanHandoff},
		{"halo, ada avanza 2019?", None},
		{"total sales", None},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := c.Classify(tt.text, AudienceCustomer); got.Name != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got.Name, tt.want)
			}
		})
	}
}

// The following pin the current first-match behavior. They document
// ambiguity that is intentionally preserved.
func TestClassifyOrderCharacterization(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		text string
		want string
	}{
		// Both "stock" and "sales" are contained; "sales" is listed first.
		{"two report keywords", "stock sales report", "get_report/sales_report"},
		{"penjualan before stok", "laporan penjualan stok", "get_report/sales_report"},
		// "lead" is contained in "leader" and over-matches.
		{"containment over-match", "report leaderboard", "get_report/lead_report"},
		// Edit rule sits above the report rule.
		{"edit beats report", "ubah harga laporan", "edit_vehicle"},
		// Cancel beats everything else when leading.
		{"cancel beats upload", "batal upload", "cancel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text, AudienceStaff); got.String() != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got.String(), tt.want)
			}
		})
	}
}

func TestMarkSoldParams(t *testing.T) {
	got := NewClassifier().Classify("terjual pm-0003 125jt", AudienceStaff)
	if got.Params["code"] != "PM-0003" || got.Params["price"] != "125jt" {
		t.Fatalf("params = %v", got.Params)
	}

	got = NewClassifier().Classify("sold PM7", AudienceStaff)
	if got.Name != MarkSold || got.Params["code"] != "PM7" {
		t.Fatalf("got %+v", got)
	}
	if _, ok := got.Params["price"]; ok {
		t.Fatalf("unexpected price param: %v", got.Params)
	}
}

func TestAIToggleParams(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("bot nyala", AudienceStaff); got.Params["state"] != "on" {
		t.Fatalf("bot nyala -> %v", got.Params)
	}
	if got := c.Classify("ai off", AudienceStaff); got.Params["state"] != "off" {
		t.Fatalf("ai off -> %v", got.Params)
	}
}
