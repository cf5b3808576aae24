// fallback.go - Locally synthesized reports used when every model attempt fails

package report

import (
	"math/rand"
	"sync"
	"time"
)

// Intner is the slice of *rand.Rand the generator needs.
type Intner interface {
	Intn(n int) int
}

type persona struct {
	name     string
	reasonEN string
	reasonTR string
}

var personaPools = map[Mode][]persona{
	ModeHeritage: {
		{"Marcus Aurelius", "Symmetrical brow ridge and a composed, stoic gaze.", "Simetrik kaş kemeri ve sakin, stoacı bakış."},
		{"Cleopatra VII", "Pronounced cheekbones with an almond eye profile.", "Belirgin elmacık kemikleri ve badem göz profili."},
		{"Leonardo da Vinci", "Deep-set eyes and an observant forehead line.", "Derin gözler ve gözlemci bir alın hattı."},
		{"Frida Kahlo", "Strong brow geometry with a defiant jaw angle.", "Güçlü kaş geometrisi ve meydan okuyan çene açısı."},
		{"Nikola Tesla", "Narrow facial frame with high-intensity eye spacing.", "Dar yüz çerçevesi ve yoğun göz aralığı."},
		{"Audrey Hepburn", "Delicate jawline and wide, expressive eyes.", "Narin çene hattı ve geniş, ifadeli gözler."},
		{"Mustafa Kemal Atatürk", "Sharp blue-steel gaze and a resolute jaw.", "Keskin çelik bakışlar ve kararlı çene."},
	},
	ModePastLife: {
		{"Ottoman Court Astronomer", "The eyes of someone who mapped the night sky.", "Gece gökyüzünü haritalayan birinin gözleri."},
		{"Viking Shieldmaiden", "A weathered, unyielding jaw built for northern winds.", "Kuzey rüzgarlarına göre yapılmış, boyun eğmez bir çene."},
		{"Renaissance Fresco Painter", "A patient, detail-hungry gaze.", "Sabırlı ve ayrıntıya aç bir bakış."},
		{"Silk Road Merchant", "A face tuned for negotiation across a dozen languages.", "Bir düzine dilde pazarlığa ayarlı bir yüz."},
		{"Samurai Retainer", "Disciplined stillness around the eyes.", "Gözlerin çevresinde disiplinli bir dinginlik."},
		{"Egyptian Temple Scribe", "Focused brow and meticulous mouth line.", "Odaklı kaşlar ve titiz bir ağız çizgisi."},
	},
	ModeCyberArchetype: {
		{"Netrunner", "Rapid-scan eye geometry consistent with deep-dive interfaces.", "Derin dalış arayüzleriyle uyumlu hızlı tarama göz geometrisi."},
		{"Corporate Fixer", "Controlled micro-expressions and a negotiator's jaw.", "Kontrollü mikro ifadeler ve müzakereci çenesi."},
		{"Street Samurai", "Angular structure optimized for chrome implants.", "Krom implantlar için optimize edilmiş köşeli yapı."},
		{"Rogue AI Whisperer", "Unreadable gaze with a synthetic calm.", "Okunamayan bakış ve sentetik bir sükunet."},
		{"Techno-Shaman", "Symmetry that suggests signal over noise.", "Gürültü yerine sinyali işaret eden simetri."},
		{"Neon Courier", "Lean features built for speed through the sprawl.", "Şehir karmaşasında hız için yapılmış ince hatlar."},
	},
}

var metricPools = map[Language]struct {
	cheekbones, eyes, jawline []string
}{
	LangEnglish: {
		cheekbones: []string{"High-set", "Angular", "Softly contoured", "Prominent"},
		eyes:       []string{"Almond, wide-set", "Deep-set", "Hooded, intense", "Upturned"},
		jawline:    []string{"Chiseled", "Square", "Tapered", "Rounded, firm"},
	},
	LangTurkish: {
		cheekbones: []string{"Yüksek", "Köşeli", "Yumuşak hatlı", "Belirgin"},
		eyes:       []string{"Badem, geniş aralıklı", "Derin", "Yoğun bakışlı", "Çekik"},
		jawline:    []string{"Keskin", "Kare", "İnce uçlu", "Yuvarlak, sağlam"},
	},
}

var narrativePools = map[Language][]string{
	LangEnglish: {
		"Your biometric signature reads as quietly strategic: you observe first, then move decisively. People underestimate you exactly once.",
		"The scan reveals a restless creative engine wrapped in a calm exterior. You collect ideas the way others collect keys.",
		"A resilient pattern dominates: setbacks register as data, not defeat. Your charisma is understated but persistent.",
		"Your facial geometry suggests a natural mediator with a hidden competitive streak that surfaces when stakes are high.",
	},
	LangTurkish: {
		"Biyometrik imzan sessizce stratejik: önce gözlemler, sonra kararlı hareket edersin. İnsanlar seni yalnızca bir kez hafife alır.",
		"Tarama, sakin bir dış görünüşün altında huzursuz bir yaratıcı motor ortaya koyuyor. Fikir biriktirmek senin için bir alışkanlık.",
		"Dayanıklı bir örüntü baskın: aksilikler senin için yenilgi değil, veri. Karizman gösterişsiz ama kalıcı.",
		"Yüz geometrin, yüksek riskte ortaya çıkan gizli bir rekabetçiliğe sahip doğal bir arabulucuya işaret ediyor.",
	},
}

// FallbackGenerator builds schema-valid reports from curated pools and bounded random values.
// It is safe for concurrent use.
type FallbackGenerator struct {
	mu  sync.Mutex
	rng Intner
}

// NewFallbackGenerator returns a generator drawing from rng, or from a time-seeded source when nil.
func NewFallbackGenerator(rng Intner) *FallbackGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &FallbackGenerator{rng: rng}
}

// Generate returns a complete report. Unknown modes draw from the heritage pool.
func (g *FallbackGenerator) Generate(mode Mode, lang Language) *AnalysisReport {
	g.mu.Lock()
	defer g.mu.Unlock()

	if lang != LangTurkish {
		lang = LangEnglish
	}
	pool, ok := personaPools[mode]
	if !ok {
		pool = personaPools[ModeHeritage]
	}

	picks := g.distinct(len(pool), 1+MaxAlternatives)
	primary := pool[picks[0]]

	primaryPct := MinMatchPercentage + g.rng.Intn(MaxMatchPercentage-MinMatchPercentage+1)
	alt1 := primaryPct - 1 - g.rng.Intn(15)
	alt2 := alt1 - 1 - g.rng.Intn(10)

	reason := primary.reasonEN
	if lang == LangTurkish {
		reason = primary.reasonTR
	}

	metrics := metricPools[lang]
	narratives := narrativePools[lang]

	return &AnalysisReport{
		Metrics: Metrics{
			Cheekbones: metrics.cheekbones[g.rng.Intn(len(metrics.cheekbones))],
			Eyes:       metrics.eyes[g.rng.Intn(len(metrics.eyes))],
			Jawline:    metrics.jawline[g.rng.Intn(len(metrics.jawline))],
		},
		PrimaryMatch: Match{
			Name:       primary.name,
			Percentage: Percentage(primaryPct),
			Reason:     reason,
		},
		Alternatives: []Alternative{
			{Name: pool[picks[1]].name, Percentage: Percentage(alt1)},
			{Name: pool[picks[2]].name, Percentage: Percentage(alt2)},
		},
		Attributes: Attributes{
			Intelligence: g.score(),
			Dominance:    g.score(),
			Creativity:   g.score(),
			Resilience:   g.score(),
			Charisma:     g.score(),
		},
		Narrative: narratives[g.rng.Intn(len(narratives))],
	}
}

// score draws from [40,99].
func (g *FallbackGenerator) score() Score {
	return Score(40 + g.rng.Intn(60))
}

// distinct returns k different indexes in [0,n) via a partial Fisher-Yates shuffle.
func (g *FallbackGenerator) distinct(n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + g.rng.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
