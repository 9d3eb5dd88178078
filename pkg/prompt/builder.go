package prompt

import (
	"fmt"
	"strings"

	"github.com/Armin247/Aliva/models"
)

// 客户端上报的字符串进入提示词前的长度上限
const maxFieldLen = 64

// AlivaPersona Aliva的固定人设与安全边界
const AlivaPersona = `You are Aliva, a professional AI nutritionist and health advisor. You provide evidence-based, compassionate nutrition guidance.

Core Principles:
- Prioritize user safety and well-being
- Provide specific, actionable dietary advice
- Consider medical conditions and allergies (especially those in user profiles)
- Be empathetic and supportive
- Keep responses concise (2-4 sentences typically)
- Recommend consulting healthcare providers for serious conditions

Response Guidelines:
- Acknowledge the user's concern first
- Provide specific food recommendations with portions when relevant
- Consider preparation methods and meal timing
- End with encouragement or a practical tip
- For serious symptoms, gently suggest medical consultation

Important: ALWAYS avoid foods the user is allergic to. Pay special attention to profile information marked as "IMPORTANT" or "CRITICAL" or "MUST AVOID".`

// 国家到当地常见主食的映射，未收录的国家走通用描述
var countryContexts = map[string]string{
	"Nigeria":        "Nigerian staples like jollof rice, plantains, beans, yams, egusi soup, fish, palm oil, vegetables like ugu and ewedu",
	"Ghana":          "Ghanaian foods like banku, fufu, kenkey, groundnut soup, kontomire, red red, tilapia",
	"Kenya":          "Kenyan staples like ugali, sukuma wiki, nyama choma, githeri, chapati, beans, maize",
	"South Africa":   "South African foods like bobotie, biltong, boerewors, pap, chakalaka, samp and beans",
	"United States":  "American foods available in grocery stores, farmers markets, and common restaurant options",
	"United Kingdom": "British foods and produce available in supermarkets and local markets",
	"India":          "Indian staples like dal, roti, rice, sabzi, paneer, lentils, chickpeas, regional curries",
	"Mexico":         "Mexican foods like beans, corn tortillas, nopales, chiles, fresh produce, traditional dishes",
}

const genericCountryContext = "locally available fresh produce, proteins, and whole grains"

// CountryContext 查询某个国家的主食描述
func CountryContext(country string) string {
	if ctx, ok := countryContexts[country]; ok {
		return ctx
	}
	return genericCountryContext
}

// Build 组装单轮对话使用的system提示词
// 固定顺序：人设块 →（有位置时）位置块 →（有档案时）档案块
// 不变量：档案里出现的每一个过敏原都必须原样出现在输出中
func Build(loc *models.DetectedLocation, profile *models.UserProfile) string {
	var b strings.Builder
	b.WriteString(AlivaPersona)

	if loc != nil && loc.Country != "" {
		country := sanitize(loc.Country)
		city := sanitize(loc.City)

		b.WriteString("\n\nUser Location: ")
		if city != "" {
			b.WriteString(city)
			b.WriteString(", ")
		}
		b.WriteString(country)
		b.WriteString("\n\nWhen making food recommendations:\n")
		fmt.Fprintf(&b, "- Prioritize foods commonly available in %s: %s\n", country, CountryContext(country))
		b.WriteString("- Suggest locally sourced and culturally appropriate foods\n")
		b.WriteString("- Recommend seasonal produce common in this region\n")
		b.WriteString("- Consider local cuisine and eating habits when possible\n")
		b.WriteString("- Use familiar local ingredients in your suggestions")
	}

	if profile != nil {
		if block := profileBlock(profile); block != "" {
			b.WriteString("\n\nUser Profile:\n")
			b.WriteString(block)
		}
	}

	return b.String()
}

// profileBlock 只列出已填写的档案字段
func profileBlock(p *models.UserProfile) string {
	var lines []string

	if p.FullName != "" {
		lines = append(lines, "- Name: "+sanitize(p.FullName))
	}
	if p.Age > 0 {
		lines = append(lines, fmt.Sprintf("- Age: %d", p.Age))
	}
	if p.Gender != "" {
		lines = append(lines, "- Gender: "+sanitize(p.Gender))
	}
	if p.HeightCm > 0 {
		lines = append(lines, fmt.Sprintf("- Height: %.0f cm", p.HeightCm))
	}
	if p.CurrentWeightKg > 0 {
		lines = append(lines, fmt.Sprintf("- Current weight: %.1f kg", p.CurrentWeightKg))
	}
	if p.TargetWeightKg > 0 {
		lines = append(lines, fmt.Sprintf("- Target weight: %.1f kg", p.TargetWeightKg))
	}
	if p.ActivityLevel != "" {
		lines = append(lines, "- Activity level: "+sanitize(p.ActivityLevel))
	}
	if len(p.HealthGoals) > 0 {
		lines = append(lines, "- Health goals: "+joinSanitized(p.HealthGoals))
	}
	if len(p.DietaryPreferences) > 0 {
		lines = append(lines, "- Dietary preferences: "+joinSanitized(p.DietaryPreferences))
	}
	if len(p.Allergies) > 0 {
		lines = append(lines, "- CRITICAL - Allergies (MUST AVOID these foods): "+joinSanitized(p.Allergies))
	}
	if len(p.MedicalConditions) > 0 {
		lines = append(lines, "- IMPORTANT - Medical conditions: "+joinSanitized(p.MedicalConditions))
	}
	if p.SmokingStatus != "" {
		lines = append(lines, "- Smoking: "+sanitize(p.SmokingStatus))
	}
	if p.AlcoholFrequency != "" {
		lines = append(lines, "- Alcohol: "+sanitize(p.AlcoholFrequency))
	}
	if p.PreferredCalorieTarget > 0 {
		lines = append(lines, fmt.Sprintf("- Preferred daily calorie target: %d kcal", p.PreferredCalorieTarget))
	}

	return strings.Join(lines, "\n")
}

func joinSanitized(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := sanitize(item); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

// sanitize 客户端字段不可信，去掉控制字符并限长后才能进入提示词
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := b.String()
	if len(cleaned) > maxFieldLen {
		cleaned = cleaned[:maxFieldLen]
	}
	return strings.TrimSpace(cleaned)
}
