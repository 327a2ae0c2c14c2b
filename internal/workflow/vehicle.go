package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"showroom-gateway/internal/models"

	"gorm.io/datatypes"
)

var uploadDefinition = definition{
	intro: "📋 Upload mobil baru. Ketik *batal* kapan saja untuk membatalkan.",
	init:  func(s *State) { s.Upload = &UploadFields{} },
	steps: []step{
		{
			prompt: "1/4 Kirim merek, model, dan tahun (contoh: Toyota Avanza 2019).",
			handle: func(_ context.Context, env stepEnv, s *State, in Input) (stepOutcome, error) {
				brand, model, year, err := parseBasics(in.Text, env.now)
				if err != nil {
					return stepOutcome{}, err
				}
				s.Upload.Brand, s.Upload.Model, s.Upload.Year = brand, model, year
				return stepOutcome{advance: true}, nil
			},
		},
		{
			prompt: "2/4 Kirim warna, transmisi, dan harga (contoh: Hitam, matic, 130jt).",
			handle: func(_ context.Context, _ stepEnv, s *State, in Input) (stepOutcome, error) {
				color, trans, price, err := parseSpecs(in.Text)
				if err != nil {
					return stepOutcome{}, err
				}
				s.Upload.Color, s.Upload.Transmission, s.Upload.Price = color, trans, price
				return stepOutcome{advance: true}, nil
			},
		},
		{
			prompt: "3/4 Kirim kilometer (contoh: 45rb km).",
			handle: func(_ context.Context, _ stepEnv, s *State, in Input) (stepOutcome, error) {
				km, err := parseMileage(in.Text)
				if err != nil {
					return stepOutcome{}, err
				}
				s.Upload.MileageKm = km
				return stepOutcome{advance: true}, nil
			},
		},
		{
			prompt: "4/4 Kirim foto mobil. Ketik *selesai* jika sudah.",
			handle: func(_ context.Context, _ stepEnv, s *State, in Input) (stepOutcome, error) {
				if in.MediaRef != "" {
					s.Upload.Photos = append(s.Upload.Photos, in.MediaRef)
					return stepOutcome{ack: fmt.Sprintf("📷 Foto %d diterima. Kirim foto lain atau ketik *selesai*.", len(s.Upload.Photos))}, nil
				}
				if isDone(in.Text) {
					return stepOutcome{advance: true}, nil
				}
				return stepOutcome{}, parseErr("Kirim foto atau ketik selesai.")
			},
		},
	},
	commit: func(ctx context.Context, env stepEnv, s *State) (string, error) {
		u := s.Upload
		photos, err := json.Marshal(append([]string{}, u.Photos...))
		if err != nil {
			return "", err
		}
		v := &models.Vehicle{
			TenantID:     env.tenantID,
			Brand:        u.Brand,
			Model:        u.Model,
			Year:         u.Year,
			Color:        u.Color,
			Transmission: u.Transmission,
			Price:        u.Price,
			MileageKm:    u.MileageKm,
			Photos:       datatypes.JSON(photos),
			Status:       "available",
			CreatedBy:    s.StartedBy,
		}
		if err := env.inv.CreateVehicle(ctx, v); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Mobil tersimpan dengan kode *%s*\n%s %s %d, %s, %s\n%s, %s km, %d foto",
			v.Code, v.Brand, v.Model, v.Year, v.Color, v.Transmission,
			FormatRupiah(v.Price), formatThousands(v.MileageKm), len(u.Photos)), nil
	},
}

var editDefinition = definition{
	intro: "✏️ Ubah harga mobil. Ketik *batal* kapan saja untuk membatalkan.",
	init:  func(s *State) { s.Edit = &EditFields{} },
	steps: []step{
		{
			prompt: "1/2 Kirim kode mobil (contoh: V0012).",
			handle: func(ctx context.Context, env stepEnv, s *State, in Input) (stepOutcome, error) {
				code, err := parseCode(in.Text)
				if err != nil {
					return stepOutcome{}, err
				}
				v, err := env.inv.FindVehicle(ctx, env.tenantID, code)
				if err != nil {
					return stepOutcome{}, err
				}
				if v == nil {
					return stepOutcome{}, parseErr("Mobil dengan kode %s tidak ditemukan.", code)
				}
				if v.Status == "sold" {
					return stepOutcome{}, parseErr("Mobil %s sudah terjual.", code)
				}
				s.Edit.Code = v.Code
				s.Edit.Label = fmt.Sprintf("%s %s %d", v.Brand, v.Model, v.Year)
				s.Edit.CurrentPrice = v.Price
				return stepOutcome{
					advance: true,
					ack:     fmt.Sprintf("%s %s, harga saat ini %s.", v.Code, s.Edit.Label, FormatRupiah(v.Price)),
				}, nil
			},
		},
		{
			prompt: "2/2 Kirim harga baru (contoh: 125jt).",
			handle: func(_ context.Context, _ stepEnv, s *State, in Input) (stepOutcome, error) {
				price, err := ParsePrice(in.Text)
				if err != nil {
					return stepOutcome{}, parseErr("Harga tidak dikenali (contoh: 125jt atau 125.000.000).")
				}
				s.Edit.NewPrice = price
				return stepOutcome{advance: true}, nil
			},
		},
	},
	commit: func(ctx context.Context, env stepEnv, s *State) (string, error) {
		e := s.Edit
		if err := env.inv.UpdatePrice(ctx, env.tenantID, e.Code, e.NewPrice); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Harga %s %s diubah: %s → %s",
			e.Code, e.Label, FormatRupiah(e.CurrentPrice), FormatRupiah(e.NewPrice)), nil
	},
}

func formatThousands(n int) string {
	return strings.TrimPrefix(FormatRupiah(int64(n)), "Rp")
}

// ParseType accepts the stored workflow name.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case VehicleUpload, VehicleEdit:
		return Type(s), true
	}
	return "", false
}

// StepLabel renders "2/4" for status messages.
func StepLabel(s *State) string {
	def, err := definitionFor(s.Type)
	if err != nil {
		return strconv.Itoa(int(s.Step))
	}
	return fmt.Sprintf("%d/%d", s.Step, len(def.steps))
}
