package services

import (
	"fmt"
	"strconv"
	"strings"

	"dice-offline/internal/models"
)

const emptyOutput = `<div class="outputEmpty">Ready to roll!</div>`

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes & < > " and '.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Classify checks the minimum first, so a 1 on a d2 is a minimum.
func Classify(v, sides int) models.Classification {
	switch {
	case v == 1:
		return models.ClassMinimum
	case v == sides:
		return models.ClassMaximum
	default:
		return models.ClassNormal
	}
}

func EmptyOutput() string {
	return emptyOutput
}

// Render formats a result according to the mode it was rolled with.
func Render(result models.RollResult) string {
	if result.Mode != models.ModeNormal && result.Chosen != nil && len(result.Values) == 2 {
		return FormatAdvDis(result.Mode, result.Values[0], result.Values[1], *result.Chosen)
	}
	return FormatRoll(result)
}

// FormatRoll renders "3d6 : 2+3+6 = 11" with each value classified.
func FormatRoll(result models.RollResult) string {
	left := fmt.Sprintf("%dd%d : ", result.Quantity, result.Sides)

	parts := make([]string, len(result.Values))
	for i, v := range result.Values {
		parts[i] = coloredNum(v, result.Sides)
	}

	var b strings.Builder
	b.WriteString(`<div class="rollLine">`)
	b.WriteString(EscapeHTML(left))
	b.WriteString(strings.Join(parts, `<span class="sep">+</span>`))
	b.WriteString(` = <span class="total">`)
	b.WriteString(EscapeHTML(strconv.Itoa(result.Total)))
	b.WriteString(`</span></div>`)
	return b.String()
}

// FormatAdvDis renders "1d20 ADV = (a, b) -> chosen".
func FormatAdvDis(mode models.Mode, a, b, chosen int) string {
	labelCls := "advTag"
	if mode == models.ModeDisadvantage {
		labelCls = "disTag"
	}

	return fmt.Sprintf(`<div class="rollLine">1d20 <span class="%s">%s</span> = (%s, %s) -> %s</div>`,
		labelCls,
		EscapeHTML(mode.Label()),
		coloredNum(a, 20),
		coloredNum(b, 20),
		coloredNum(chosen, 20),
	)
}

func coloredNum(v, sides int) string {
	return fmt.Sprintf(`<span class="%s">%s</span>`, Classify(v, sides).CSSClass(), EscapeHTML(strconv.Itoa(v)))
}
