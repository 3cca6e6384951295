package patterns

import (
	"fmt"

	"github.com/apresai/promptpatterns/internal/refine"
)

// Tasks holds the content optimization tasks. Korean wording is used for
// the objective, role and criteria.
var Tasks = map[string]refine.Task{
	"basic": {
		Name:      "Bedrock Overview for Executives",
		Objective: "Amazon Bedrock의 주요 특징을 3문장으로 설명하세요. 대상: 클라우드 경험이 없는 경영진.",
		Role:      "당신은 AWS 기술 마케팅 전문가입니다.",
		Criteria: "1. 명확성 (1-5): 전문 용어 없이 경영진이 바로 이해할 수 있는가?\n" +
			"2. 간결성 (1-5): 3문장 이내, 군더더기 없는가?\n" +
			"3. 설득력 (1-5): 비즈니스 가치가 명확한가?\n" +
			"4. 정확성 (1-5): 기술적으로 정확한가?",
		CriterionNames: []string{"명확성", "간결성", "설득력", "정확성"},
		Rounds:         1,
	},
	"advanced": {
		Name: "Financial CIO Proposal Summary",
		Objective: "Amazon Bedrock을 활용한 고객 서비스 자동화 도입 제안서의 핵심 요약을 " +
			"5문장으로 작성하세요. 대상: 금융권 CIO. ROI와 보안을 강조하세요.",
		Role: "당신은 금융권 전문 AWS 컨설턴트입니다.",
		Criteria: "1. 명확성 (1-5): CIO가 바로 의사결정할 수 있을 정도로 명확한가?\n" +
			"2. 간결성 (1-5): 5문장 이내, 불필요한 수식어 없는가?\n" +
			"3. 설득력 (1-5): ROI와 비즈니스 임팩트가 구체적인가?\n" +
			"4. 정확성 (1-5): 기술적으로 정확하고 과장이 없는가?\n" +
			"5. 보안/규제 (1-5): 금융권 규제(전자금융감독규정 등) 관점을 반영했는가?\n" +
			"6. 실행가능성 (1-5): 구체적인 다음 단계(PoC 등)가 제시되었는가?",
		CriterionNames: []string{"명확성", "간결성", "설득력", "정확성", "보안/규제", "실행가능성"},
		Rounds:         3,
	},
	"advanced-blog": {
		Name: "Tech Blog Introduction",
		Objective: "Amazon Bedrock을 소개하는 기술 블로그의 도입부를 300자 이내로 작성하세요. " +
			"대상: 백엔드 개발자. Hook + 핵심 가치 + 읽어야 할 이유를 포함하세요.",
		Role: "당신은 기술 블로그 전문 작가입니다. 개발자 커뮤니티에서 인기 있는 글을 쓰는 것이 특기입니다.",
		Criteria: "1. 명확성 (1-5): 개발자가 바로 이해할 수 있는가?\n" +
			"2. 간결성 (1-5): 300자 이내인가?\n" +
			"3. 설득력 (1-5): 계속 읽고 싶어지는가?\n" +
			"4. 정확성 (1-5): 기술적으로 정확한가?\n" +
			"5. 톤 (1-5): 개발자 친화적이고 자연스러운가?",
		CriterionNames: []string{"명확성", "간결성", "설득력", "정확성", "톤"},
		Rounds:         2,
	},
}

// TaskKeys returns the task keys for the given mode, in run order.
func TaskKeys(advanced bool) []string {
	if advanced {
		return []string{"advanced", "advanced-blog"}
	}
	return []string{"basic"}
}

// TaskByKey returns a copy of the named task.
func TaskByKey(key string) (refine.Task, error) {
	t, ok := Tasks[key]
	if !ok {
		return refine.Task{}, fmt.Errorf("unknown task %q", key)
	}
	t.CriterionNames = append([]string(nil), t.CriterionNames...)
	return t, nil
}
