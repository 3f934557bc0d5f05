package extract

import (
	"github.com/rs/zerolog/log"

	"idverify/internal/models"
	"idverify/internal/textnorm"
)

// Config holds the label vocabularies the heuristics match against.
type Config struct {
	NameLabels    []string  `mapstructure:"name_labels"`
	DOBLabels     []string  `mapstructure:"dob_labels"`
	AddressLabels []string  `mapstructure:"address_labels"`
	Boilerplate   []string  `mapstructure:"boilerplate"`
	NameOrder     NameOrder `mapstructure:"name_order"`
}

// DefaultConfig returns the vocabulary for Aadhaar-style cards printed in
// English and Hindi.
func DefaultConfig() Config {
	return Config{
		NameLabels:    []string{"Name", "नाम"},
		DOBLabels:     []string{"DOB", "Date of Birth", "Year of Birth", "YOB", "जन्म तिथि", "जन्म वर्ष"},
		AddressLabels: []string{"Address", "पता"},
		Boilerplate: []string{
			"Government", "India", "Authority", "Unique Identification",
			"Aadhaar", "भारत सरकार", "भारत", "सरकार",
		},
		NameOrder: NameOrderOverride,
	}
}

// Extractor runs every field heuristic over one normalized text.
type Extractor struct {
	nameChain    []Strategy
	addressChain []Strategy
	nameOrder    NameOrder
}

// New compiles the label vocabularies in cfg. Empty lists fall back to
// DefaultConfig.
func New(cfg Config) *Extractor {
	def := DefaultConfig()
	if len(cfg.NameLabels) == 0 {
		cfg.NameLabels = def.NameLabels
	}
	if len(cfg.DOBLabels) == 0 {
		cfg.DOBLabels = def.DOBLabels
	}
	if len(cfg.AddressLabels) == 0 {
		cfg.AddressLabels = def.AddressLabels
	}
	if cfg.Boilerplate == nil {
		cfg.Boilerplate = def.Boilerplate
	}
	if cfg.NameOrder == "" {
		cfg.NameOrder = NameOrderOverride
	}

	nameLabel := labelPattern(cfg.NameLabels, true)
	dobLabel := labelPattern(cfg.DOBLabels, false)

	return &Extractor{
		nameChain: []Strategy{
			{Name: "labeled", Fn: labeledName(nameLabel)},
			{Name: "above-dob", Fn: nameAboveDOB(dobLabel, cfg.Boilerplate)},
		},
		addressChain: addressStrategies(cfg.AddressLabels),
		nameOrder:    cfg.NameOrder,
	}
}

func addressStrategies(labels []string) []Strategy {
	out := make([]Strategy, 0, len(labels))
	for _, l := range labels {
		out = append(out, Strategy{Name: l, Fn: addressAfter(labelPattern([]string{l}, true))})
	}
	return out
}

// Name runs the name heuristics in the configured order.
func (e *Extractor) Name(text string, lines []string) (string, bool) {
	v, _, ok := e.name(text, lines)
	return v, ok
}

func (e *Extractor) name(text string, lines []string) (string, string, bool) {
	caps := Strategy{Name: "all-caps", Fn: allCapsName}
	if e.nameOrder == NameOrderLabeledFirst {
		return FirstMatch(text, lines, append(e.nameChain[:len(e.nameChain):len(e.nameChain)], caps)...)
	}
	// An all-caps run wins over any labeled or positional match.
	if v, s, ok := FirstMatch(text, lines, caps); ok {
		return v, s, true
	}
	return FirstMatch(text, lines, e.nameChain...)
}

// Address returns the text following the first address label found.
func (e *Extractor) Address(text string, lines []string) (string, bool) {
	v, _, ok := FirstMatch(text, lines, e.addressChain...)
	return v, ok
}

// Extract runs all field extractors independently. Fields that are not
// found are left empty.
func (e *Extractor) Extract(t textnorm.Text) models.ExtractionResult {
	var res models.ExtractionResult

	if v, ok := IDNumber(t.Joined, t.Lines); ok {
		res.IDNumber = v
	}
	if v, s, ok := FirstMatch(t.Joined, t.Lines, DateOfBirthChain...); ok {
		res.DateOfBirth = v
		if !ValidDate(v) {
			log.Warn().Str("strategy", s).Msg("extracted date of birth is not a calendar date")
		}
	}
	if v, s, ok := e.name(t.Joined, t.Lines); ok {
		res.FullName = v
		log.Debug().Str("strategy", s).Msg("name extracted")
	}
	if g, ok := GenderOf(t.Joined, t.Lines); ok {
		res.Gender = g
	}
	if v, ok := e.Address(t.Joined, t.Lines); ok {
		res.Address = v
	}

	log.Debug().
		Int("lines", len(t.Lines)).
		Int("fields_found", len(res.Found())).
		Msg("field extraction completed")
	return res
}
