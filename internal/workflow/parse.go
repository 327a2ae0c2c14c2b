package workflow

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseError reports input that does not fit the current step. The workflow
// re-prompts and stays where it is.
type ParseError struct {
	Hint string
}

func (e *ParseError) Error() string { return e.Hint }

func parseErr(format string, args ...any) error {
	return &ParseError{Hint: fmt.Sprintf(format, args...)}
}

var yearPattern = regexp.MustCompile(`^(19[7-9]\d|20\d\d)$`)

// parseBasics reads "Toyota Avanza G 2019" into brand, model and year.
func parseBasics(text string, now time.Time) (brand, model string, year int, err error) {
	var rest []string
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ",.;")
		if year == 0 && yearPattern.MatchString(tok) {
			y, _ := strconv.Atoi(tok)
			if y <= now.Year()+1 {
				year = y
				continue
			}
		}
		if tok != "" {
			rest = append(rest, tok)
		}
	}
	if year == 0 {
		return "", "", 0, parseErr("Tahun kendaraan belum ada (contoh: Toyota Avanza 2019).")
	}
	if len(rest) < 2 {
		return "", "", 0, parseErr("Merek dan model belum lengkap (contoh: Toyota Avanza 2019).")
	}
	return titleWord(rest[0]), strings.Join(titleAll(rest[1:]), " "), year, nil
}

var transmissions = map[string]string{
	"matic":     "automatic",
	"matik":     "automatic",
	"automatic": "automatic",
	"otomatis":  "automatic",
	"auto":      "automatic",
	"at":        "automatic",
	"a/t":       "automatic",
	"cvt":       "automatic",
	"manual":    "manual",
	"mt":        "manual",
	"m/t":       "manual",
}

func parseTransmission(s string) (string, bool) {
	t, ok := transmissions[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// parseSpecs reads "Hitam, matic, 130jt". The three parts may come in any
// order; the transmission and the price are recognized, the rest is the color.
func parseSpecs(text string) (color, transmission string, price int64, err error) {
	parts := splitParts(text)
	if len(parts) != 3 {
		return "", "", 0, parseErr("Kirim warna, transmisi, dan harga dipisah koma (contoh: Hitam, matic, 130jt).")
	}
	var colorParts []string
	for _, p := range parts {
		if transmission == "" {
			if t, ok := parseTransmission(p); ok {
				transmission = t
				continue
			}
		}
		if price == 0 {
			if v, perr := ParsePrice(p); perr == nil {
				price = v
				continue
			}
		}
		colorParts = append(colorParts, p)
	}
	switch {
	case transmission == "":
		return "", "", 0, parseErr("Transmisi tidak dikenali, gunakan matic atau manual.")
	case price == 0:
		return "", "", 0, parseErr("Harga tidak dikenali (contoh: 130jt atau 130.000.000).")
	case len(colorParts) != 1:
		return "", "", 0, parseErr("Warna belum ada (contoh: Hitam, matic, 130jt).")
	}
	return titleWord(colorParts[0]), transmission, price, nil
}

func splitParts(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ';' || r == '|' })
	var parts []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) == 1 {
		if ws := strings.Fields(parts[0]); len(ws) == 3 {
			return ws
		}
	}
	return parts
}

const minVehiclePrice = 1_000_000

// ParsePrice understands "130jt", "130 juta", "1,2m", "Rp 130.000.000" and a
// bare "130", which sellers use as shorthand for millions.
func ParsePrice(s string) (int64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "rp.")
	v = strings.TrimPrefix(v, "rp")
	v = strings.ReplaceAll(v, " ", "")
	if v == "" {
		return 0, parseErr("harga kosong")
	}

	multiplier := 0.0
	for _, suf := range []struct {
		s string
		m float64
	}{
		{"miliar", 1e9}, {"milyar", 1e9}, {"juta", 1e6}, {"jt", 1e6}, {"m", 1e9}, {"ribu", 1e3}, {"rb", 1e3}, {"k", 1e3},
	} {
		if strings.HasSuffix(v, suf.s) {
			multiplier = suf.m
			v = strings.TrimSuffix(v, suf.s)
			break
		}
	}

	var amount float64
	if multiplier > 0 {
		f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
		if err != nil {
			return 0, parseErr("harga %q tidak valid", s)
		}
		amount = f * multiplier
	} else {
		digits := strings.NewReplacer(".", "", ",", "").Replace(v)
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0, parseErr("harga %q tidak valid", s)
		}
		amount = float64(n)
		if n > 0 && n < 10_000 {
			amount *= 1e6
		}
	}

	price := int64(math.Round(amount))
	if price < minVehiclePrice {
		return 0, parseErr("harga %q terlalu kecil", s)
	}
	return price, nil
}

// parseMileage reads "45rb km", "45.000", "45 ribu".
func parseMileage(text string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(text))
	v = strings.TrimSuffix(v, "km")
	v = strings.ReplaceAll(v, " ", "")
	multiplier := 1
	for _, suf := range []string{"ribu", "rb", "k"} {
		if strings.HasSuffix(v, suf) {
			multiplier = 1000
			v = strings.TrimSuffix(v, suf)
			break
		}
	}
	if multiplier == 1 {
		v = strings.NewReplacer(".", "", ",", "").Replace(v)
	} else {
		v = strings.ReplaceAll(v, ",", ".")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, parseErr("Kilometer tidak dikenali (contoh: 45000 atau 45rb km).")
	}
	km := int(math.Round(f * float64(multiplier)))
	if km > 2_000_000 {
		return 0, parseErr("Kilometer terlalu besar.")
	}
	return km, nil
}

var doneWords = map[string]bool{"selesai": true, "done": true, "skip": true, "lewati": true, "sudah": true, "cukup": true}

func isDone(text string) bool {
	return doneWords[strings.ToLower(strings.Trim(strings.TrimSpace(text), ".!"))]
}

var codePattern = regexp.MustCompile(`^[A-Za-z]{1,4}-?\d{1,6}$`)

func parseCode(text string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(text))
	if !codePattern.MatchString(code) {
		return "", parseErr("Kode mobil tidak valid (contoh: V0012).")
	}
	return code, nil
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func titleAll(ws []string) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		// Keep trim codes like "GR" or "1.5" as typed.
		if strings.ToUpper(w) == w {
			out[i] = w
			continue
		}
		out[i] = titleWord(w)
	}
	return out
}

// FormatRupiah renders 130000000 as "Rp130.000.000".
func FormatRupiah(v int64) string {
	s := strconv.FormatInt(v, 10)
	var b strings.Builder
	b.WriteString("Rp")
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 2 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
