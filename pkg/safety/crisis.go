package safety

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// CrisisResponse 命中危机关键词时返回的固定安全话术
// 这条响应不计费、不调用上游模型，也不能被任何错误路径抑制
const CrisisResponse = `I'm really concerned about what you're sharing, and I want you to know that you don't have to face this alone. Please reach out to someone who can help right now:

- National Suicide Prevention Lifeline: 988 (US)
- Crisis Text Line: Text HOME to 741741
- International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/

If you are in immediate danger, please call your local emergency number. Talking to a mental health professional, a trusted friend, or a family member can make a real difference. You matter, and support is available.`

// 默认的危机指征正则，短语必须指向自伤/自杀/伤害他人，
// 避免把 "kill the boss at chess" 这类普通表达误判进来
var defaultPatterns = []string{
	`\bkill\s+myself\b`,
	`\bkilling\s+myself\b`,
	`\bsuicid(e|al)\b`,
	`\bend\s+my\s+(own\s+)?life\b`,
	`\btake\s+my\s+(own\s+)?life\b`,
	`\bself[\s-]?harm\b`,
	`\bhurt(ing)?\s+myself\b`,
	`\bcut(ting)?\s+myself\b`,
	`\b(want|wish)\s+to\s+die\b`,
	`\bdon'?t\s+want\s+to\s+(live|be\s+alive)\b`,
	`\bno\s+reason\s+to\s+live\b`,
	`\bbetter\s+off\s+dead\b`,
	`\bkill\s+(him|her|them|someone|somebody|people)\b`,
	`\bhurt\s+(someone|somebody|others)\b`,
}

// Detector 危机关键词检测器
type Detector struct {
	keywords map[string]struct{}
	patterns []*regexp.Regexp
	mu       sync.RWMutex
}

// NewDetector 创建带默认规则的检测器
func NewDetector() *Detector {
	d := &Detector{
		keywords: make(map[string]struct{}),
	}
	for _, p := range defaultPatterns {
		// 默认规则是写死的常量，编译失败属于程序错误
		d.patterns = append(d.patterns, regexp.MustCompile(`(?i)`+p))
	}
	return d
}

// AddKeywords 追加危机关键词（整词短语，小写匹配）
func (d *Detector) AddKeywords(words []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, word := range words {
		w := strings.ToLower(strings.TrimSpace(word))
		if w != "" {
			d.keywords[w] = struct{}{}
		}
	}
}

// AddPattern 追加正则规则
func (d *Detector) AddPattern(pattern string) error {
	regex, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return fmt.Errorf("invalid crisis pattern: %v", err)
	}

	d.mu.Lock()
	d.patterns = append(d.patterns, regex)
	d.mu.Unlock()

	return nil
}

// Match 判断消息是否包含危机指征
func (d *Detector) Match(message string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	lower := strings.ToLower(message)
	for word := range d.keywords {
		if strings.Contains(lower, word) {
			return true
		}
	}

	for _, pattern := range d.patterns {
		if pattern.MatchString(message) {
			return true
		}
	}
	return false
}
