package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tsawler/replica/model"
)

// First-page metadata extraction is best-effort pattern matching over the
// assembled text blocks. Labels appear in Korean or English depending on
// the issuing body; every list is ordered most specific first and the first
// match wins. Misses leave fields empty.

var cmNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?mi)암호모듈명\s*[:：]\s*(.+)`),
	regexp.MustCompile(`(?mi)모듈명\s*[:：]\s*(.+)`),
	regexp.MustCompile(`(?mi)제품명\s*[:：]\s*(.+)`),
	regexp.MustCompile(`(?mi)CM\s+Name\s*[:：]\s*(.+)`),
	// Text directly preceding a version marker is taken as the module name.
	regexp.MustCompile(`(?mi)^([^:：\n]+?)\s*(?:V\d+\.\d+|버전|Version)`),
}

var cmNameHeader = regexp.MustCompile(`(?i)^(시험|결과|보고서|Test|Report)`)

var versionPattern = regexp.MustCompile(`(?:V|v|버전|Version)\s*(\d+\.\d+(?:\.\d+)?)`)

type datePattern struct {
	re     *regexp.Regexp
	layout string // "ymd", "dmy" or "raw"
}

var datePatterns = []datePattern{
	{regexp.MustCompile(`(\d{4})\s*[년\-.]\s*(\d{1,2})\s*[월\-.]\s*(\d{1,2})\s*일?`), "ymd"},
	{regexp.MustCompile(`(\d{4})[/\-](\d{1,2})[/\-](\d{1,2})`), "ymd"},
	{regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`), "dmy"},
	{regexp.MustCompile(`(?:작성일|발행일|날짜|Date)\s*[:：]?\s*(\d{4}[\-./]\d{1,2}[\-./]\d{1,2})`), "raw"},
}

var orgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?mi)(?:시험기관|검증기관|평가기관|기관명|Organization)\s*[:：]\s*(.+)`),
	regexp.MustCompile(`(?mi)(?:시험|검증|평가)\s*[:：]\s*(.+)`),
	regexp.MustCompile(`(?mi)^([가-힣A-Za-z\s]+(?:연구소|연구원|센터|Institute|Center|Lab)).*(?:주소|전화|Tel|Address)`),
}

var orgKeyword = regexp.MustCompile(`(?i)(연구소|연구원|센터|기관|Institute|Center|Lab)`)

var leadingDigit = regexp.MustCompile(`^\d`)
var digitsOnly = regexp.MustCompile(`^\d+$`)

// scanMetadata fills the identification fields from the first page. The
// page count is the caller's concern.
func scanMetadata(firstPage *model.Page) model.Metadata {
	var md model.Metadata
	if firstPage == nil || len(firstPage.TextBlocks) == 0 {
		return md
	}

	parts := make([]string, 0, len(firstPage.TextBlocks))
	for _, b := range firstPage.TextBlocks {
		parts = append(parts, strings.TrimSpace(b.Text))
	}
	fullText := strings.Join(parts, "\n")

	md.CMName = scanCMName(fullText, firstPage.TextBlocks)
	if m := versionPattern.FindStringSubmatch(fullText); m != nil {
		md.Version = "V" + m[1]
	}
	md.Date = scanDate(fullText)
	md.TestOrganization = scanOrganization(fullText, firstPage)
	return md
}

func scanCMName(fullText string, blocks []model.TextBlock) string {
	for _, re := range cmNamePatterns {
		if m := re.FindStringSubmatch(fullText); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	// Fall back to the first contentful block that is not a report header
	// or a bare number.
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" || cmNameHeader.MatchString(text) {
			continue
		}
		if len([]rune(text)) <= 5 || digitsOnly.MatchString(text) {
			continue
		}
		return text
	}
	return ""
}

func scanDate(fullText string) string {
	for _, dp := range datePatterns {
		m := dp.re.FindStringSubmatch(fullText)
		if m == nil {
			continue
		}
		switch dp.layout {
		case "ymd":
			return fmt.Sprintf("%s-%s-%s", m[1], zfill2(m[2]), zfill2(m[3]))
		case "dmy":
			return fmt.Sprintf("%s-%s-%s", m[3], zfill2(m[1]), zfill2(m[2]))
		default:
			return m[1]
		}
	}
	return ""
}

func zfill2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func scanOrganization(fullText string, page *model.Page) string {
	for _, re := range orgPatterns {
		if m := re.FindStringSubmatch(fullText); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	// Fall back to an institute-looking block in the bottom third of the
	// page, scanning upward from the last block.
	bottom := page.Height * 0.67
	for i := len(page.TextBlocks) - 1; i >= 0; i-- {
		b := page.TextBlocks[i]
		if b.Y0 <= bottom {
			continue
		}
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		n := len([]rune(text))
		if orgKeyword.MatchString(text) || (n > 5 && n < 50 && !leadingDigit.MatchString(text)) {
			return text
		}
	}
	return ""
}
