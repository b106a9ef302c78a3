package prompts

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GlossaryTerm maps a column name to its business meaning.
type GlossaryTerm struct {
	Column  string `yaml:"column"`
	Meaning string `yaml:"meaning"`
}

// Glossary is an ordered list of terms; order is preserved in the prompt.
type Glossary []GlossaryTerm

type glossaryFile struct {
	Terms Glossary `yaml:"terms"`
}

// DefaultGlossary describes the electricity market bid tables.
func DefaultGlossary() Glossary {
	return Glossary{
		{"Segment", "Market segment (e.g., DAM - Day Ahead Market, RTM - Real Time Market)"},
		{"Record_Date", "Date of the record (YYYY-MM-DD format)"},
		{"Record_Hour", "Hour of the day (0-23)"},
		{"Time_Block", "Time block identifier"},
		{"Purchase_Bid_MW", "Purchase bid in megawatts"},
		{"Sell_Bid_MW", "Sell bid in megawatts"},
		{"MCV_MW", "Market Clearing Volume in megawatts"},
		{"Final_Scheduled_Volume_MW", "Final scheduled volume in megawatts"},
		{"MCP_Rs_MWh", "Market Clearing Price in Rupees per MWh"},
		{"MCP_Rs_MW", "Market Clearing Price in Rupees per MW"},
	}
}

// LoadGlossary reads a glossary from a YAML file of the form:
//
//	terms:
//	  - column: Segment
//	    meaning: Market segment
func LoadGlossary(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	return ParseGlossary(data)
}

// ParseGlossary decodes glossary YAML. Terms without a column name are rejected.
func ParseGlossary(data []byte) (Glossary, error) {
	var file glossaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse glossary: %w", err)
	}
	for i, term := range file.Terms {
		if strings.TrimSpace(term.Column) == "" {
			return nil, fmt.Errorf("glossary term %d has no column", i+1)
		}
	}
	return file.Terms, nil
}
