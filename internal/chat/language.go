package chat

import "strings"

// IsArabic reports whether the question contains any Arabic-script rune.
// That single signal selects the response language for everything after.
func IsArabic(q string) bool {
	for _, r := range q {
		if r >= 0x0600 && r <= 0x06FF {
			return true
		}
	}
	return false
}

// labKeywords gates the assistant to lab-safety topics. A question that
// contains none of these is refused before any further stage runs.
var labKeywords = []string{
	"lab", "safety", "ppe", "violation", "violations", "alert", "alerts",
	"redzone", "red zone", "spill", "spills", "detection", "detections",
	"person", "persons", "people", "video", "videos",
	"مختبر", "سلامة", "معدات الوقاية", "قفازات", "خوذة", "نظارات",
	"تنبيه", "تنبيهات", "منطقة خطرة", "تسرب", "أشخاص", "فيديو",
}

func inLabDomain(q string) bool {
	ql := strings.ToLower(q)
	for _, k := range labKeywords {
		if strings.Contains(ql, k) {
			return true
		}
	}
	return false
}

func containsAny(q string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
