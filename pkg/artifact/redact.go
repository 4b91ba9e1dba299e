package artifact

import "regexp"

// secretRule 密钥脱敏规则
type secretRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// 脱敏规则按顺序应用，先匹配赋值形式，再匹配裸 Token
var secretRules = []secretRule{
	{
		pattern:     regexp.MustCompile(`(?i)(api[_-]?key|apikey)["\s:=]+["']?([a-zA-Z0-9_\-]{20,})["']?`),
		replacement: `$1="[REDACTED]"`,
	},
	{
		pattern:     regexp.MustCompile(`(?i)(password|passwd|pwd)["\s:=]+["']?([^\s"']{8,})["']?`),
		replacement: `$1="[REDACTED]"`,
	},
	{
		pattern:     regexp.MustCompile(`(?i)(secret|token)["\s:=]+["']?([a-zA-Z0-9_\-]{20,})["']?`),
		replacement: `$1="[REDACTED]"`,
	},
	{
		pattern:     regexp.MustCompile(`(?i)(bearer|authorization)["\s:]+["']?([a-zA-Z0-9_\-.]{20,})["']?`),
		replacement: `$1="[REDACTED]"`,
	},
	{
		pattern:     regexp.MustCompile(`(?i)sk-[a-zA-Z0-9]{20,}`),
		replacement: "[REDACTED_API_KEY]",
	},
	{
		pattern:     regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),
		replacement: "[REDACTED_GITHUB_TOKEN]",
	},
}

// RedactSecrets 对文本内容做密钥脱敏
//
// 覆盖常见的 API Key、密码、Token 赋值形式以及 OpenAI 和 GitHub
// 风格的裸 Token。
func RedactSecrets(content string) string {
	for _, rule := range secretRules {
		content = rule.pattern.ReplaceAllString(content, rule.replacement)
	}
	return content
}
