package resolve

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules carries the tunable extraction knobs for the whole enrichment
// pipeline. Everything has a compiled-in default; operators override single
// values from a yaml file.
type Rules struct {
	// Plausibility window for auction dates.
	MinYear       int `yaml:"min_year"`
	MaxYearsAhead int `yaml:"max_years_ahead"`

	// How much document text the lot counter reads.
	ItemScanLimit int `yaml:"item_scan_limit"`

	// Tag hygiene and classification (consumed by the normalizer).
	TagDenylist   []string            `yaml:"tag_denylist"`
	TagKeywords   map[string][]string `yaml:"tag_keywords"`
	OnlineWords   []string            `yaml:"online_words"`
	InPersonWords []string            `yaml:"in_person_words"`

	// Hosts that are never counterpart sites (consumed by linkcheck).
	EmailHosts  []string `yaml:"email_hosts"`
	GovSuffixes []string `yaml:"gov_suffixes"`
}

// DefaultRules returns the compiled-in rule set.
func DefaultRules() Rules {
	return Rules{
		MinYear:       2020,
		MaxYearsAhead: 5,
		ItemScanLimit: defaultScanLimit,
		TagDenylist: []string{
			"teste", "interno", "homologação", "homologacao",
			"rascunho", "robô", "robo",
		},
		TagKeywords: map[string][]string{
			"veículos":    {"veículo", "veiculo", "automóvel", "automovel", "carro"},
			"sucata":      {"sucata", "inservível", "inservivel", "ferroso"},
			"motos":       {"moto", "motocicleta", "motoneta"},
			"caminhões":   {"caminhão", "caminhao", "caminhonete"},
			"imóveis":     {"imóvel", "imovel", "terreno", "edificação", "edificacao", "lote urbano"},
			"informática": {"informática", "informatica", "computador", "notebook", "impressora"},
			"móveis":      {"mobiliário", "mobiliario", "cadeira", "mesa", "armário", "armario"},
		},
		OnlineWords: []string{
			"eletrônico", "eletronico", "online", "on-line", "internet",
			"www.", "plataforma",
		},
		InPersonWords: []string{
			"presencial", "presencialmente", "auditório", "auditorio",
			"comparecimento",
		},
		EmailHosts: []string{
			"gmail.com", "hotmail.com", "outlook.com", "yahoo.com",
			"yahoo.com.br", "bol.com.br", "uol.com.br", "terra.com.br",
			"live.com", "icloud.com",
		},
		GovSuffixes: []string{
			".gov.br", ".jus.br", ".leg.br", ".mil.br",
		},
	}
}

// LoadRules reads a yaml rules file over the defaults. Absent keys keep
// their default values; an empty path returns the defaults untouched.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, eris.Wrapf(err, "resolve: read rules file %s", path)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, eris.Wrapf(err, "resolve: parse rules file %s", path)
	}

	if rules.MinYear <= 0 {
		rules.MinYear = 2020
	}
	if rules.MaxYearsAhead <= 0 {
		rules.MaxYearsAhead = 5
	}
	if rules.ItemScanLimit <= 0 {
		rules.ItemScanLimit = defaultScanLimit
	}

	return rules, nil
}
