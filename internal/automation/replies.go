package automation

import (
	"fmt"
	"strings"
	"time"

	"showroom-gateway/internal/actor"
	"showroom-gateway/internal/health"
	"showroom-gateway/internal/models"
	"showroom-gateway/internal/workflow"
)

const (
	msgTryAgain      = "Maaf, terjadi kendala saat menyimpan. Silakan kirim ulang pesan terakhir Anda."
	msgDenied        = "Maaf, peran Anda tidak memiliki akses untuk perintah ini."
	msgNothingToStop = "Tidak ada proses yang sedang berjalan."
	msgReportFailed  = "Maaf, laporan belum bisa dibuat saat ini. Silakan coba lagi nanti."
	msgHandoff       = "Baik, permintaan Anda sudah kami teruskan ke tim kami. Mohon tunggu sebentar, staf kami akan segera membalas. 🙏"
)

func greetingReply(t models.Tenant) string {
	return fmt.Sprintf("Halo! 👋 Selamat datang di %s. Ada mobil yang sedang Anda cari? Ketik merek, model atau budget Anda, kami bantu carikan.", t.Name)
}

func locationReply(t models.Tenant) string {
	if strings.TrimSpace(t.Address) == "" {
		return fmt.Sprintf("Untuk alamat %s, tim kami akan mengirimkan detailnya sebentar lagi.", t.Name)
	}
	return fmt.Sprintf("📍 %s berlokasi di:\n%s", t.Name, t.Address)
}

func hoursReply(t models.Tenant) string {
	if strings.TrimSpace(t.BusinessHours) == "" {
		return fmt.Sprintf("Jam operasional %s akan segera dikonfirmasi oleh tim kami.", t.Name)
	}
	return fmt.Sprintf("🕘 Jam operasional %s: %s", t.Name, t.BusinessHours)
}

func staffHelp(a actor.Actor) string {
	var b strings.Builder
	name := a.Name
	if name == "" {
		name = "Tim"
	}
	fmt.Fprintf(&b, "Halo %s! Perintah yang tersedia:\n", name)
	if a.Can(actor.PermUploadVehicle) {
		b.WriteString("• *upload* tambah mobil baru\n")
	}
	if a.Can(actor.PermEditVehicle) {
		b.WriteString("• *ubah harga* ubah harga mobil\n")
	}
	if a.Can(actor.PermMarkSold) {
		b.WriteString("• *terjual <kode> [harga]* tandai mobil terjual\n")
	}
	if a.Can(actor.PermViewReports) {
		b.WriteString("• *total sales* / *rekap leads* laporan\n")
	}
	if a.Can(actor.PermViewInventory) {
		b.WriteString("• *cek stok* laporan stok\n")
	}
	if a.Can(actor.PermToggleAI) {
		b.WriteString("• *ai on* / *ai off* / *ai status*\n")
	}
	b.WriteString("• *batal* batalkan proses berjalan")
	return b.String()
}

func reminder(s *workflow.State) string {
	return fmt.Sprintf("⏸️ Proses %s masih menunggu (langkah %s):\n%s",
		workflow.Describe(s), workflow.StepLabel(s), workflow.Prompt(s))
}

func busyReply(s *workflow.State) string {
	return fmt.Sprintf("Proses %s masih berjalan. Selesaikan dulu atau ketik *batal* untuk membatalkan.",
		workflow.Describe(s))
}

func healthReply(s health.Status) string {
	if s.Enabled {
		return "🤖 AI aktif dan membalas pelanggan."
	}
	var b strings.Builder
	b.WriteString("🤖 AI nonaktif")
	if s.Reason != "" {
		fmt.Fprintf(&b, " (%s)", s.Reason)
	}
	if s.DisabledAt != nil {
		fmt.Fprintf(&b, " sejak %s", s.DisabledAt.Format("02 Jan 15:04"))
	}
	b.WriteString(". Pelanggan menerima pesan standar.")
	return b.String()
}

func handoffNotice(customer, text string, at time.Time) string {
	return fmt.Sprintf("🔔 Pelanggan %s minta dihubungi staf (%s):\n\"%s\"",
		customer, at.Format("15:04"), text)
}

// systemPrompt grounds the completion on the tenant and its stock.
func systemPrompt(t models.Tenant, stock []models.Vehicle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Anda adalah asisten penjualan %s, showroom mobil bekas. ", t.Name)
	b.WriteString("Jawab singkat dan ramah dalam bahasa Indonesia. Jangan mengarang unit atau harga di luar daftar stok.\n")
	if t.Address != "" {
		fmt.Fprintf(&b, "Alamat: %s\n", t.Address)
	}
	if t.BusinessHours != "" {
		fmt.Fprintf(&b, "Jam operasional: %s\n", t.BusinessHours)
	}
	if len(stock) == 0 {
		b.WriteString("Stok saat ini kosong; tawarkan untuk mencatat kebutuhan pelanggan.")
		return b.String()
	}
	b.WriteString("Stok tersedia:\n")
	for _, v := range stock {
		fmt.Fprintf(&b, "- %s %s %s %d, %s, %s, %s\n",
			v.Code, v.Brand, v.Model, v.Year, v.Color, v.Transmission, workflow.FormatRupiah(v.Price))
	}
	return b.String()
}
