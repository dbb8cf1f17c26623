// Package responder produces canned Thai-language replies without calling any
// external service. It is the default backend and the last-resort fallback.
package responder

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// bangkok is fixed at UTC+7; Thailand observes no daylight saving.
var bangkok = time.FixedZone("ICT", 7*60*60)

// Rule maps a keyword group to a reply. A message matches when its lower-cased
// text contains any of the keywords. Exactly one of Reply, Choices or Build
// is set.
type Rule struct {
	Name     string
	Keywords []string
	Reply    string
	Choices  []string
	Build    func(now time.Time) string
}

// Deterministic reports whether the rule always yields the same text.
func (r Rule) Deterministic() bool {
	return r.Reply != ""
}

var rules = []Rule{
	{
		Name:     "greeting",
		Keywords: []string{"สวัสดี", "หวัดดี", "hello"},
		Reply:    "สวัสดีครับ! ยินดีที่ได้รู้จักนะครับ มีอะไรให้ช่วยไหมครับ?",
	},
	{
		Name:     "identity",
		Keywords: []string{"ชื่อ", "คุณคือใคร", "who are you", "your name"},
		Reply:    "ผมชื่อ AI Assistant ครับ เป็น AI ที่ถูกสร้างมาเพื่อช่วยเหลือและตอบคำถามต่างๆ",
	},
	{
		Name:     "how-to",
		Keywords: []string{"อย่างไร", "ทำไง", "ยังไง", "how to"},
		Reply:    "เรื่องนี้มีหลายวิธีครับ ขึ้นอยู่กับสถานการณ์ของคุณ คุณต้องการคำแนะนำด้านไหนครับ?",
	},
	{
		Name:     "money",
		Keywords: []string{"ค่าใช้จ่าย", "ราคา", "เงิน", "price", "cost"},
		Reply:    "เรื่องการเงินเป็นเรื่องสำคัญครับ ควรวางแผนการเงินและติดตามรายรับรายจ่ายให้ดี",
	},
	{
		Name:     "time",
		Keywords: []string{"เวลา", "กี่โมง", "what time"},
		Build: func(now time.Time) string {
			return fmt.Sprintf("ตอนนี้เวลา %s ครับ", now.In(bangkok).Format("15:04:05"))
		},
	},
	{
		Name:     "thanks",
		Keywords: []string{"ขอบคุณ", "thank you", "thanks"},
		Reply:    "ยินดีครับ! หากมีคำถามอื่นๆ อีก สามารถถามได้เสมอนะครับ",
	},
	{
		Name:     "farewell",
		Keywords: []string{"ลาก่อน", "bye"},
		Reply:    "ลาก่อนครับ! หวังว่าจะได้พูดคุยกันอีกนะครับ",
	},
	{
		Name:     "programming",
		Keywords: []string{"โปรแกรม", "เขียนโค้ด", "โค้ด", "code", "programming", "golang", "python", "javascript"},
		Choices: []string{
			"การเขียนโปรแกรมเป็นทักษะที่มีประโยชน์มากครับ ลองเริ่มจากโปรเจกต์เล็กๆ ก่อนนะครับ",
			"ถ้าติดปัญหาเรื่องโค้ด ลองอธิบาย error ที่เจอให้ละเอียดขึ้น ผมจะช่วยดูให้ครับ",
			"แนะนำให้อ่านเอกสารของภาษานั้นๆ ควบคู่กับการลงมือเขียนจริงครับ จะเข้าใจเร็วขึ้นมาก",
		},
	},
	{
		Name:     "help",
		Keywords: []string{"ช่วย", "help"},
		Reply:    "ยินดีช่วยเหลือครับ! ลองเล่ารายละเอียดเพิ่มเติมหน่อยได้ไหมครับ ว่าต้องการความช่วยเหลือเรื่องอะไร",
	},
	{
		Name:     "api",
		Keywords: []string{"api", "openai", "claude", "gpt"},
		Choices: []string{
			"ตอนนี้ผมกำลังทำงานในโหมด Mock AI ครับ หากต้องการคำตอบจาก AI จริง ให้ตั้งค่า API key ของ OpenAI หรือ Claude",
			"ระบบนี้รองรับทั้ง OpenAI และ Claude ครับ สามารถเลือก provider ได้ในแต่ละคำขอ",
		},
	},
}

var basePhrases = []string{
	"นั่นเป็นคำถามที่น่าสนใจมากเลยครับ ให้ผมคิดดูสักครู่...",
	"ขอบคุณสำหรับคำถามครับ ผมจะพยายามตอบให้ดีที่สุด",
	"ผมเข้าใจแล้วครับ นี่คือสิ่งที่ผมคิดว่าจะช่วยคุณได้",
	"น่าสนใจมากครับ! ให้ผมอธิบายให้ฟังนะครับ",
	"คำถามที่ดีมากครับ ผมมีข้อมูลที่น่าจะเป็นประโยชน์",
}

var generalPhrases = []string{
	"หากต้องการรายละเอียดเพิ่มเติม ถามต่อได้เลยนะครับ",
	"ลองบอกบริบทเพิ่มอีกนิด ผมจะตอบได้ตรงขึ้นครับ",
	"หวังว่าจะเป็นประโยชน์นะครับ",
}

// Rules returns a copy of the ordered rule list.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Responder evaluates the rule list against a message.
type Responder struct {
	now  func() time.Time
	pick func(n int) int
}

type Option func(*Responder)

// WithClock overrides the wall clock used by the time rule.
func WithClock(now func() time.Time) Option {
	return func(r *Responder) {
		r.now = now
	}
}

// WithPicker overrides the random index selection; pick must return a value
// in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(r *Responder) {
		r.pick = pick
	}
}

func New(opts ...Option) *Responder {
	r := &Responder{
		now:  time.Now,
		pick: rand.Intn,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond never fails. Rules are checked in order and the first match wins.
func (r *Responder) Respond(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range rules {
		if !matches(lower, rule.Keywords) {
			continue
		}
		switch {
		case rule.Build != nil:
			return rule.Build(r.now())
		case len(rule.Choices) > 0:
			return rule.Choices[r.pick(len(rule.Choices))]
		default:
			return rule.Reply
		}
	}
	return fmt.Sprintf("%s เกี่ยวกับ \"%s\" นั่นเอง %s",
		basePhrases[r.pick(len(basePhrases))],
		message,
		generalPhrases[r.pick(len(generalPhrases))],
	)
}

func matches(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
