// Package intent maps free text to a closed set of command intents.
//
// Rules are evaluated in declaration order and the first match wins. The order
// is part of the behavior: more specific phrases sit above generic ones, and
// moving a rule changes which intent overlapping messages receive.
package intent

import (
	"regexp"
	"strings"
)

type Name string

const (
	None Name = ""

	// Staff intents.
	Cancel        Name = "cancel"
	AIToggle      Name = "ai_toggle"
	AIStatus      Name = "ai_status"
	MarkSold      Name = "mark_sold"
	EditVehicle   Name = "edit_vehicle"
	UploadVehicle Name = "upload_vehicle"
	GetReport     Name = "get_report"
	Help          Name = "help"

	// Customer intents.
	HumanHandoff    Name = "human_handoff"
	LocationInquiry Name = "location_inquiry"
	BusinessHours   Name = "business_hours"
	Greeting        Name = "greeting"
)

// Report subtypes resolved by the secondary keyword lookup.
const (
	SalesReport     = "sales_report"
	InventoryReport = "inventory_report"
	LeadReport      = "lead_report"
)

// Intent is one classification outcome. Params carry values captured by the
// matching rule (e.g. a vehicle code).
type Intent struct {
	Name    Name
	Subtype string
	Params  map[string]string
}

func (i Intent) IsNone() bool { return i.Name == None }

func (i Intent) String() string {
	if i.Subtype == "" {
		return string(i.Name)
	}
	return string(i.Name) + "/" + i.Subtype
}

type rule struct {
	name    Name
	pattern *regexp.Regexp
	// subtype derives the subtype from the lower-cased text and the match.
	subtype func(text string, match []string) string
	params  func(match []string) map[string]string
}

type keyword struct {
	word    string
	subtype string
}

// reportKeywords is consulted with substring containment, in order. A phrase
// holding two keywords resolves to whichever is listed first.
var reportKeywords = []keyword{
	{"sales", SalesReport},
	{"penjualan", SalesReport},
	{"omzet", SalesReport},
	{"stock", InventoryReport},
	{"stok", InventoryReport},
	{"inventory", InventoryReport},
	{"lead", LeadReport},
	{"prospek", LeadReport},
}

func reportSubtype(text string, _ []string) string {
	for _, k := range reportKeywords {
		if strings.Contains(text, k.word) {
			return k.subtype
		}
	}
	return SalesReport
}

var staffRules = []rule{
	{name: Cancel, pattern: regexp.MustCompile(`^(batal|cancel|batalkan|stop upload)\b`)},
	{
		name:    AIToggle,
		pattern: regexp.MustCompile(`^(?:ai|bot)\s+(on|off|nyala|mati|aktif|nonaktif)\b`),
		params: func(m []string) map[string]string {
			state := "off"
			switch m[1] {
			case "on", "nyala", "aktif":
				state = "on"
			}
			return map[string]string{"state": state}
		},
	},
	{name: AIStatus, pattern: regexp.MustCompile(`^(?:ai|bot)\s+status\b|^status\s+(?:ai|bot)\b`)},
	{
		name:    MarkSold,
		pattern: regexp.MustCompile(`^(?:terjual|sold|laku)\s+([a-z]{1,4}-?\d{1,6})(?:\s+(.+))?$`),
		params: func(m []string) map[string]string {
			p := map[string]string{"code": strings.ToUpper(m[1])}
			if strings.TrimSpace(m[2]) != "" {
				p["price"] = strings.TrimSpace(m[2])
			}
			return p
		},
	},
	{name: EditVehicle, pattern: regexp.MustCompile(`\b(edit mobil|ubah harga|update harga|edit harga|edit vehicle)\b`)},
	{name: UploadVehicle, pattern: regexp.MustCompile(`^(upload|tambah mobil|input mobil|upload mobil|add vehicle)\b`)},
	{
		name:    GetReport,
		pattern: regexp.MustCompile(`\b(total sales|sales report|laporan|report|rekap|penjualan|omzet|stok|stock|inventory|leads?)\b`),
		subtype: reportSubtype,
	},
	{name: Help, pattern: regexp.MustCompile(`^(help|menu|bantuan|\?)$`)},
}

var customerRules = []rule{
	{name: HumanHandoff, pattern: regexp.MustCompile(`\b(bicara dengan (admin|sales|manusia)|hubungi (admin|sales)|minta (admin|sales)|talk to (a )?human|customer service|cs)\b`)},
	{name: LocationInquiry, pattern: regexp.MustCompile(`\b(alamat|lokasi|dimana showroom|di mana showroom|address|location)\b`)},
	{name: BusinessHours, pattern: regexp.MustCompile(`\b(jam buka|jam operasional|buka jam|opening hours|jam berapa buka)\b`)},
	{name: Greeting, pattern: regexp.MustCompile(`^(halo|hallo|hai|hi|hello|selamat (pagi|siang|sore|malam)|assalamualaikum|permisi)[\s!.,]*$`)},
}

type Audience int

const (
	AudienceCustomer Audience = iota
	AudienceStaff
)

type Classifier struct {
	staff    []rule
	customer []rule
}

func NewClassifier() *Classifier {
	return &Classifier{staff: staffRules, customer: customerRules}
}

// Classify returns the first matching intent for text, or an Intent whose
// Name is None.
func (c *Classifier) Classify(text string, audience Audience) Intent {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if normalized == "" {
		return Intent{}
	}

	rules := c.customer
	if audience == AudienceStaff {
		rules = c.staff
	}

	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		in := Intent{Name: r.name}
		if r.subtype != nil {
			in.Subtype = r.subtype(normalized, m)
		}
		if r.params != nil {
			in.Params = r.params(m)
		}
		return in
	}
	return Intent{}
}
