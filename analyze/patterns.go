package analyze

import "regexp"

// contextRadius is the half-width, in bytes, of the context window taken
// around each code mention.
const contextRadius = 400

// mentionPatterns builds the ordered mention patterns for one code: the bare
// code first, then the code preceded by labels meaning code, barcode or
// product code in Spanish and English.
func mentionPatterns(code string) []*regexp.Regexp {
	quoted := regexp.QuoteMeta(code)
	return []*regexp.Regexp{
		regexp.MustCompile(`\b` + quoted + `\b`),
		regexp.MustCompile(`(?i)EAN[\s:-]*` + quoted),
		regexp.MustCompile(`(?i)UPC[\s:-]*` + quoted),
		regexp.MustCompile(`(?i)c(?:ó|o)digo(?: de barras)?[\s:-]*` + quoted),
		regexp.MustCompile(`(?i)barcode[\s:-]*` + quoted),
		regexp.MustCompile(`(?i)(?:product )?code[\s:-]*` + quoted),
	}
}

// extractor pairs a pattern with the capture group holding the value of
// interest. Tables are evaluated in order; the first match wins.
type extractor struct {
	re    *regexp.Regexp
	group int
}

func (e extractor) find(text string) (string, bool) {
	m := e.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[e.group], true
}

// productPatterns locate a product name inside a context window: explicit
// labels in Spanish and English first, then a capitalized-leading-phrase
// heuristic, then an all-non-lowercase-phrase heuristic.
var productPatterns = []extractor{
	{regexp.MustCompile(`(?i)(?:producto|art(?:í|i)culo|item|product)[\s:]+([^\n.]{5,50})`), 1},
	{regexp.MustCompile(`(?i)(?:nombre|t(?:í|i)tulo|name|title)[\s:]+([^\n.]{5,50})`), 1},
	{regexp.MustCompile(`(?i)(?:modelo|referencia|model|reference)[\s:]+([^\n.]{5,50})`), 1},
	{regexp.MustCompile(`(?i)(?:descripci(?:ó|o)n|description)[\s:]+([^\n.]{5,50})`), 1},
	{regexp.MustCompile(`(?:^|[\n.])\s*([A-Z][^\n.]{5,50})`), 1},
	{regexp.MustCompile(`(?:^|[\n.])\s*([^a-z\n.]{5,50})`), 1},
}

// datePatterns locate a temporal clue inside a context window. Year-bearing
// patterns come before bare keyword patterns so that "descatalogado en 2015"
// yields "2015" rather than the keyword itself.
var datePatterns = []extractor{
	{regexp.MustCompile(`(?i)(?:a(?:ñ|n)o|modelo|year|model)[\s:]+(\d{4})`), 1},
	{regexp.MustCompile(`(?i)(?:versi(?:ó|o)n|edici(?:ó|o)n|version|edition)[\s:]+([^\n.]{5,30})`), 1},
	{regexp.MustCompile(`(?i)(?:desde|hasta|entre|from|to|between)[\s:]+(\d{4})`), 1},
	{regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`), 1},
	{regexp.MustCompile(`\b(\d{4}[/-]\d{1,2}[/-]\d{1,2})\b`), 1},
	{regexp.MustCompile(`(?i)(?:enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)[\s,]+(\d{4})`), 1},
	{regexp.MustCompile(`(?i)(?:january|february|march|april|may|june|july|august|september|october|november|december)[\s,]+(\d{4})`), 1},
	{regexp.MustCompile(`\b((?:19|20)\d{2})\b`), 1},
	{regexp.MustCompile(`(?i)(descatalogado|discontinuado|obsoleto|discontinued|obsolete)`), 1},
	{regexp.MustCompile(`(?i)\b(anterior|previo|antiguo|previous|former)\b`), 1},
}

// historicalIndicators and currentIndicators are the two competing keyword
// sets scored against each window. Both cover discontinuation, availability,
// recency and purchase-intent language in Spanish and English.
var historicalIndicators = compileAll(
	`(?i)descatalogado|discontinuado|obsoleto|discontinued|obsolete`,
	`(?i)ya no|no disponible|not available|no longer`,
	`(?i)versi(?:ó|o)n anterior|modelo antiguo|previous version|old model`,
	`(?i)reemplazado por|sustituido por|replaced by|substituted by`,
	`(?i)hist(?:ó|o)rico|historia|pasado|historic|history|past`,
	`(?i)\b(?:fue|era|was|were)\b`,
	`(?i)antiguo|antig(?:ü|u)edad|antique|vintage`,
	`(?i)(?:colecci(?:ó|o)n|collection) (?:pasada|anterior|old)`,
)

var currentIndicators = compileAll(
	`(?i)\bnuevo\b|\bactual\b|vigente|\bnew\b|\bcurrent\b`,
	`(?i)disponible|en stock|available|in stock`,
	`(?i)versi(?:ó|o)n actual|(?:ú|u)ltimo modelo|current version|latest model`,
	`(?i)reciente|reci(?:é|e)n|recent|recently`,
	`(?i)\bcomprar\b|compra ahora|\bbuy\b|buy now`,
	`(?i)a(?:ñ|n)adir al carrito|add to cart`,
	`(?i)precio actual|current price`,
	`(?i)(?:env(?:í|i)o|shipping) (?:gratis|gratuito|free)`,
)

// titlePattern extracts the page title markup if it survived in the content.
var titlePattern = extractor{regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`), 1}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// firstMatch runs an extractor table against text and returns the first
// trimmed, non-empty match.
func firstMatch(table []extractor, text string) (string, bool) {
	for _, e := range table {
		if v, ok := e.find(text); ok {
			if trimmed := normalizeSpace(v); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}
