package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding describes text that libinjection classifies as SQL injection.
type InjectionFinding struct {
	Source      string // What was screened, e.g. "question"
	Fingerprint string // libinjection token fingerprint
	Text        string
}

// ScreenText runs libinjection over free text. It returns nil for clean text.
//
// Natural-language questions are not part of any statement, so a finding is an
// audit signal only. Example:
//
//	ScreenText("question", "'; DROP TABLE users--")
//	// non-nil, Source "question", Fingerprint set
func ScreenText(source, text string) *InjectionFinding {
	if text == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(text)
	if !isSQLi {
		return nil
	}
	return &InjectionFinding{
		Source:      source,
		Fingerprint: string(fingerprint),
		Text:        text,
	}
}

// ScreenQuestion screens a user question.
func ScreenQuestion(question string) *InjectionFinding {
	return ScreenText("question", question)
}
