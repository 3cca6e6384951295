package patterns

import "fmt"

// Style is a system prompt that rewrites tone while keeping meaning.
type Style struct {
	Key      string
	Name     string
	System   string
	Advanced bool
}

// Styles lists every style, basic first.
var Styles = []Style{
	{
		Key:  "business-formal",
		Name: "Business Formal",
		System: "You are a corporate communications specialist. " +
			"Transform the text into formal business style (honorifics, official document tone) " +
			"while preserving 100% of the original meaning. Do not add or remove information.",
	},
	{
		Key:  "tech-report",
		Name: "Technical Incident Report",
		System: "You are a senior SRE engineer. " +
			"Transform the text into a technical incident report style. " +
			"Be objective and fact-based, remove all emotional expressions.",
	},
	{
		Key:  "customer-service",
		Name: "Friendly Customer Service",
		System: "You are a customer service manager. " +
			"Transform the text to empathize with and reassure the customer. " +
			"Be warm and professional.",
	},
	{
		Key:      "medical-opinion",
		Name:     "Medical Opinion",
		Advanced: true,
		System: "You are a university hospital specialist. " +
			"Transform the situation into a medical opinion/clinical record style. " +
			"Use symptom, findings, and action plan structure with appropriate medical terminology. " +
			"Do not add information not present in the original.",
	},
	{
		Key:      "legal-opinion",
		Name:     "Legal Opinion",
		Advanced: true,
		System: "You are an IT-specialized attorney. " +
			"Transform the text into a legal opinion/formal notice style. " +
			"Use legal phrasing such as 'whereas', 'hereby', 'is obligated to'. " +
			"Preserve the original meaning.",
	},
	{
		Key:      "emotion-max",
		Name:     "Emotion Intensity MAX",
		Advanced: true,
		System: "You are an emotion expression specialist. " +
			"Amplify the emotional intensity to the maximum. " +
			"Express anger, urgency, and frustration dramatically, " +
			"but keep all core information from the original.",
	},
	{
		Key:      "emotion-min",
		Name:     "Emotion Intensity MIN",
		Advanced: true,
		System: "You are a robot assistant. " +
			"Remove all emotion and describe only facts. " +
			"Report as if a machine is giving a status update. " +
			"Remove all adjectives and emotional expressions.",
	},
	{
		Key:      "executive-summary",
		Name:     "Executive Summary",
		Advanced: true,
		System: "You are a management consulting partner. " +
			"Transform the text into a C-level executive briefing: " +
			"lead with impact/risk, quantify where possible, " +
			"end with a clear recommended action. Max 3 bullet points.",
	},
}

// StyleByKey looks up a style.
func StyleByKey(key string) (Style, error) {
	for _, s := range Styles {
		if s.Key == key {
			return s, nil
		}
	}
	return Style{}, fmt.Errorf("unknown style %q", key)
}

// Scenario is a source text to restyle.
type Scenario struct {
	Key  string
	Name string
	// Input is the Korean demo text; InputEN is its English gloss.
	Input          string
	InputEN        string
	BasicStyles    []string
	AdvancedStyles []string
}

var basicStyleKeys = []string{"business-formal", "tech-report", "customer-service"}

// Scenarios lists the style transfer inputs in run order.
var Scenarios = []Scenario{
	{
		Key:         "it-incident",
		Name:        "IT Incident Report",
		Input:       "서버가 또 터졌어요. 빨리 확인해주세요. 어제도 같은 문제였는데 아직도 안 고쳐진 거예요?",
		InputEN:     "The server crashed again. Please check it immediately. It was the same issue yesterday and it's still not fixed.",
		BasicStyles: basicStyleKeys,
		AdvancedStyles: append(append([]string{}, basicStyleKeys...),
			"medical-opinion", "legal-opinion", "emotion-max", "emotion-min", "executive-summary"),
	},
	{
		Key:  "medical-consult",
		Name: "Medical Consultation",
		Input: "환자가 3일째 두통을 호소하고 있습니다. 진통제를 먹어도 낫지 않고, " +
			"어지러움도 동반됩니다. 가족력으로 뇌졸중 이력이 있어 걱정됩니다.",
		InputEN: "The patient has been complaining of headaches for 3 days. " +
			"Pain medication isn't helping and they also have dizziness. " +
			"There's family history of stroke, which is concerning.",
		AdvancedStyles: []string{"medical-opinion", "customer-service", "executive-summary"},
	},
	{
		Key:  "security-breach",
		Name: "Security Incident",
		Input: "어젯밤 내부 관리자 페이지에 비인가 접근이 감지되었습니다. " +
			"약 200건의 사용자 레코드가 노출되었을 가능성이 있습니다. " +
			"해당 서버는 차단했지만 공격 경로는 아직 파악되지 않았습니다.",
		InputEN: "Unauthorized access was detected on the internal admin panel last night. " +
			"About 200 user records may have been exposed. " +
			"We've shut down the affected server but haven't identified the attack vector yet.",
		AdvancedStyles: []string{"tech-report", "legal-opinion", "executive-summary", "emotion-max"},
	},
}

// StyleKeys returns the styles to apply in the given mode.
func (s Scenario) StyleKeys(advanced bool) []string {
	if advanced {
		return s.AdvancedStyles
	}
	return s.BasicStyles
}

func transformPrompt(original string) string {
	return "Transform the following text:\n\n" + original
}
