package http

import (
	"net/http"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"parkspot-backend/internal/domain"
)

// DisplayFormatter renders Money for people. Amounts stay unformatted
// everywhere else in the API.
type DisplayFormatter struct {
	matcher language.Matcher
}

// NewDisplayFormatter supports English first, then Filipino, then any extra tags.
func NewDisplayFormatter(extra ...language.Tag) *DisplayFormatter {
	tags := append([]language.Tag{language.English, language.Filipino}, extra...)
	return &DisplayFormatter{matcher: language.NewMatcher(tags)}
}

// TagFor picks the display language from ?locale= or Accept-Language.
func (f *DisplayFormatter) TagFor(r *http.Request) language.Tag {
	var prefs []language.Tag
	if raw := r.URL.Query().Get("locale"); raw != "" {
		if tag, err := language.Parse(raw); err == nil {
			prefs = append(prefs, tag)
		}
	}
	if accepted, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil {
		prefs = append(prefs, accepted...)
	}
	tag, _, _ := f.matcher.Match(prefs...)
	return tag
}

// Money formats m with its currency symbol. Unknown currencies fall back
// to the plain amount and code.
func (f *DisplayFormatter) Money(tag language.Tag, m domain.Money) string {
	unit, err := currency.ParseISO(string(m.Currency()))
	if err != nil {
		return m.String()
	}
	amount, _ := m.Amount().Float64()
	return message.NewPrinter(tag).Sprint(currency.Symbol(unit.Amount(amount)))
}
