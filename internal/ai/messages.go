// messages.go - Localized user-facing messages

package ai

import "github.com/bosocmputer/biometric_scan_gemini/internal/report"

var messages = map[ErrorKind]map[report.Language]string{
	ErrorInvalidKey: {
		report.LangEnglish: "API key missing or invalid. Check configuration.",
		report.LangTurkish: "API Anahtarı eksik veya geçersiz. Lütfen yapılandırmayı kontrol edin.",
	},
	ErrorRateLimited: {
		report.LangEnglish: "Server busy (Quota Exceeded). Wait 1 min and try again.",
		report.LangTurkish: "Sunucu yoğun (Kota Doldu). Lütfen 1 dakika bekleyin.",
	},
	ErrorContentRejected: {
		report.LangEnglish: "The image was rejected by the safety filter. Try a different photo.",
		report.LangTurkish: "Görsel güvenlik filtresine takıldı. Lütfen farklı bir fotoğraf deneyin.",
	},
	ErrorNetworkUnreachable: {
		report.LangEnglish: "Cannot reach the analysis service. Check your connection.",
		report.LangTurkish: "Analiz servisine ulaşılamıyor. Bağlantınızı kontrol edin.",
	},
	ErrorUnknown: {
		report.LangEnglish: "Analysis failed. Please try again.",
		report.LangTurkish: "Analiz başarısız oldu. Lütfen tekrar deneyin.",
	},
}

var simulationNotice = map[report.Language]string{
	report.LangEnglish: "SIMULATION MODE: the AI service was unavailable, so this report was generated locally.",
	report.LangTurkish: "SİMÜLASYON MODU: Yapay zeka servisine ulaşılamadı, bu rapor yerel olarak üretildi.",
}

// Message returns the localized text for kind, defaulting to English and to the generic message.
func Message(kind ErrorKind, lang report.Language) string {
	byLang, ok := messages[kind]
	if !ok {
		byLang = messages[ErrorUnknown]
	}
	if msg, ok := byLang[lang]; ok {
		return msg
	}
	return byLang[report.LangEnglish]
}

// SimulationNotice is shown on every locally generated report.
func SimulationNotice(lang report.Language) string {
	if msg, ok := simulationNotice[lang]; ok {
		return msg
	}
	return simulationNotice[report.LangEnglish]
}
