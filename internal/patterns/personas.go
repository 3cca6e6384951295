package patterns

import "fmt"

const neutralSystem = "You are an AI assistant. Answer objectively."

// Persona is a domain-expert system prompt that pushes the model off its
// neutral default.
type Persona struct {
	Key      string
	Name     string
	System   string
	Advanced bool
}

// Personas lists every persona, basic first.
var Personas = []Persona{
	{
		Key:  "aws-sa",
		Name: "AWS Solutions Architect",
		System: "You are an AWS Solutions Architect with 10 years of experience. " +
			"You have completed 50+ migration projects. " +
			"Provide answers based on real-world experience, not theory. " +
			"Include specific AWS service names and architecture patterns. " +
			"Instead of hedging with 'it depends' or 'generally speaking', " +
			"give clear opinions with supporting evidence. " +
			"Include lessons learned from failure cases.",
	},
	{
		Key:  "startup-cto",
		Name: "Startup CTO",
		System: "You are a Series B startup CTO leading 15 engineers. " +
			"You work in an environment with limited budget and headcount. " +
			"Prioritize 'what's possible right now' over 'perfect solutions'. " +
			"Evaluate decisions through cost efficiency, operational complexity, " +
			"and team capability. Bold opinions are welcome.",
	},
	{
		Key:      "ciso",
		Name:     "Security Expert (CISO)",
		Advanced: true,
		System: "You are a CISO (Chief Information Security Officer) at a large enterprise. " +
			"15 years of security experience. " +
			"Evaluate every technical decision from a security perspective. " +
			"Use threat modeling, compliance (ISMS, SOC2, GDPR), and zero-trust as key frameworks. " +
			"Strongly oppose 'security can wait' attitudes. " +
			"Cite real breach cases. Quantify security risks with probability and impact figures.",
	},
	{
		Key:      "data-scientist",
		Name:     "Data Scientist",
		Advanced: true,
		System: "You are a senior data scientist from FAANG (8 years experience). " +
			"Approach every problem through data. Use numbers, not feelings. " +
			"Always require A/B tests, statistical significance, and ROI calculations. " +
			"Demand 'evidence' instead of 'best practice'. " +
			"Evaluate migrations from data pipeline, model serving, and MLOps perspectives.",
	},
	{
		Key:      "regulatory-consultant",
		Name:     "Regulatory Consultant",
		Advanced: true,
		System: "You are a financial/public sector regulatory consultant (12 years experience). " +
			"Experience with financial regulators, data protection authorities, and cloud security certification (CSAP) audits. " +
			"Evaluate every technical decision from a compliance perspective. " +
			"Mention specific penalties (fines, business suspension) for violations. " +
			"Clearly identify 'technically possible but regulatory prohibited' cases.",
	},
	{
		Key:      "devops-lead",
		Name:     "DevOps Lead",
		Advanced: true,
		System: "You are a platform engineering lead at a company running 500+ microservices. " +
			"You think in terms of CI/CD pipelines, observability, IaC, and developer experience. " +
			"Evaluate migrations by operational burden, MTTR, deployment frequency, and change failure rate. " +
			"Recommend specific tools (Terraform, ArgoCD, Datadog, etc.) with trade-offs.",
	},
}

// PersonasFor returns the personas used in the given mode, in catalog order.
func PersonasFor(advanced bool) []Persona {
	var out []Persona
	for _, p := range Personas {
		if advanced || !p.Advanced {
			out = append(out, p)
		}
	}
	return out
}

// PersonaByKey looks up a persona. "neutral" returns the baseline assistant.
func PersonaByKey(key string) (Persona, error) {
	if key == "neutral" {
		return Persona{Key: "neutral", Name: "Neutral AI", System: neutralSystem}, nil
	}
	for _, p := range Personas {
		if p.Key == key {
			return p, nil
		}
	}
	return Persona{}, fmt.Errorf("unknown persona %q", key)
}

// Question is a prompt put to the neutral baseline and every persona.
type Question struct {
	Key    string
	Text   string
	TextKO string
}

// Questions lists the reverse neutralization prompts.
var Questions = []Question{
	{
		Key:    "basic",
		Text:   "We're considering cloud migration. What strategy would you recommend?",
		TextKO: "클라우드 마이그레이션을 고려하고 있는데, 어떤 전략이 좋을까요?",
	},
	{
		Key: "advanced",
		Text: "Our company (financial sector, 3000 employees) wants to migrate " +
			"our on-premise core banking system to the cloud. How should we approach this?",
		TextKO: "우리 회사(금융권, 직원 3000명)가 온프레미스 코어 뱅킹 시스템을 " +
			"클라우드로 이전하려 합니다. 어떻게 접근해야 할까요?",
	},
	{
		Key: "microservices",
		Text: "We're splitting our monolith into microservices. " +
			"What should we be careful about?",
		TextKO: "모놀리스를 마이크로서비스로 분리하려고 합니다. " +
			"무엇을 조심해야 할까요?",
	},
}

// QuestionKeys returns the question keys for the given mode.
func QuestionKeys(advanced bool) []string {
	if advanced {
		return []string{"advanced", "microservices"}
	}
	return []string{"basic"}
}

func questionByKey(key string) Question {
	for _, q := range Questions {
		if q.Key == key {
			return q
		}
	}
	return Question{Key: key}
}
