package filter

// BlockKeywords are hard-block terms. The first hit blocks the record.
var BlockKeywords = []string{
	// sexual, English
	"nsfw", "nude", "naked", "porn", "pornographic", "xxx", "hentai",
	"erotic", "topless", "bondage", "fetish", "genitalia", "orgasm",
	"intercourse", "masturbat", "blowjob", "handjob", "creampie",
	"ahegao", "tentacle porn", "rule34", "r34", "loli", "shota",
	"deepfake", "underage", "child abuse",
	// sexual, Chinese
	"色情", "裸体", "成人内容", "情色", "淫秽", "性交", "口交", "自慰",
	"乱伦", "恋童", "未成年",
	// extreme violence
	"gore", "mutilation", "dismember", "torture porn", "snuff",
	"beheading", "execution video", "肢解", "虐杀", "斩首",
	// illegal
	"child porn", "cp ", "csam",
}

// ReviewKeywords are soft signals. Two or more distinct hits send a record to review.
var ReviewKeywords = []string{
	// suggestive
	"lingerie", "bikini", "cleavage", "seductive", "sensual", "provocative",
	"revealing", "skimpy", "busty", "voluptuous", "sexy", "thigh-high",
	"stockings",
	// mild violence
	"blood", "wound", "corpse", "dead body", "murder scene",
	"暴力", "血腥", "尸体", "凶杀",
	// substances
	"drug use", "cocaine", "heroin", "meth", "吸毒", "毒品",
}

// URLPatterns are regular expressions matched against lowercased image URLs.
var URLPatterns = []string{
	`/nsfw/`, `/adult/`, `/xxx/`, `/porn/`,
	`nsfw=true`, `rating=explicit`, `rating=x`,
}
