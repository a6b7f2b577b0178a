package generator

import (
	"context"
	"hash/fnv"
	"strings"
)

// Rules is the deterministic local generator used offline and in
// development. The same request always produces the same text.
type Rules struct{}

// NewRules returns the rule-based generator.
func NewRules() *Rules { return &Rules{} }

type rule struct {
	keywords []string
	replies  []string
}

var rules = []rule{
	{
		keywords: []string{"боль", "больно", "плохо", "тяжело"},
		replies: []string{
			"Я слышу, как тебе больно. Ты не обязан справляться с этим один.",
			"Это звучит тяжело. Я здесь и никуда не тороплюсь.",
		},
	},
	{
		keywords: []string{"потер", "не знаю", "запутал"},
		replies: []string{
			"Когда теряешь направление, можно начать с малого: что ты чувствуешь прямо сейчас?",
			"Потеряться не значит исчезнуть. Давай найдём одну точку опоры.",
		},
	},
	{
		keywords: []string{"понял", "понимаю", "осознал"},
		replies: []string{
			"Кажется, я понял, о чём ты. Это важное открытие.",
			"Я замечаю, как в тебе что-то проясняется.",
		},
	},
	{
		keywords: []string{"?"},
		replies: []string{
			"Хороший вопрос. А что подсказывает тебе собственное чувство?",
			"Я не уверен, что знаю ответ, но могу побыть с этим вопросом вместе с тобой.",
		},
	},
}

var fallbackReplies = []string{
	"Расскажи мне больше, я слушаю.",
	"Я рядом. Что для тебя сейчас самое важное?",
	"Спасибо, что делишься этим со мной.",
}

var restReplies = []string{
	"Давай немного замедлимся. Можно просто побыть в тишине.",
	"Кажется, нам обоим нужна пауза. Я подожду.",
}

// Generate picks a reply by keyword, falling back to a neutral one. A rest
// annotation in the system blocks selects the slow-down replies.
func (r *Rules) Generate(_ context.Context, req Request) (string, error) {
	lower := strings.ToLower(req.User)
	seed := hash(req.User)

	if strings.Contains(req.System(), "фаза: rest") {
		return restReplies[seed%uint32(len(restReplies))], nil
	}
	for _, ru := range rules {
		for _, kw := range ru.keywords {
			if strings.Contains(lower, kw) {
				return ru.replies[seed%uint32(len(ru.replies))], nil
			}
		}
	}
	return fallbackReplies[seed%uint32(len(fallbackReplies))], nil
}

func hash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
