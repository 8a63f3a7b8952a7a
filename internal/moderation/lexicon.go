package moderation

// lexiconEntry binds a language tag to its banned-term list. Matching is
// substring based over normalized text, so substrings of longer words will
// hit; that is an accepted characteristic of the flat word lists.
type lexiconEntry struct {
	lang  string
	terms []string
}

// lexicons is iterated in declaration order so the detected language is
// deterministic: the first language with a hit wins.
var lexicons = []lexiconEntry{
	{"english", []string{
		"fuck", "shit", "damn", "bitch", "asshole", "bastard", "crap", "piss",
		"hell", "stupid", "idiot", "moron", "retard", "gay", "fag", "nigger",
		"whore", "slut", "pussy", "dick", "cock", "penis", "vagina", "sex",
	}},
	{"spanish", []string{
		"mierda", "joder", "puta", "cabrón", "pendejo", "idiota", "estúpido",
		"coño", "carajo", "hijo de puta", "maricón", "gilipollas",
	}},
	{"french", []string{
		"merde", "putain", "connard", "salope", "con", "bite", "chatte",
		"enculé", "fils de pute", "bordel", "crétin", "imbécile",
	}},
	{"german", []string{
		"scheiße", "fick", "arschloch", "hurensohn", "fotze", "schwanz",
		"muschi", "blödmann", "idiot", "dummkopf", "verdammt",
	}},
	{"italian", []string{
		"merda", "cazzo", "figa", "stronzo", "puttana", "bastardo",
		"idiota", "coglione", "figlio di puttana", "vaffanculo",
	}},
	{"portuguese", []string{
		"merda", "caralho", "puta", "filho da puta", "idiota", "burro",
		"estúpido", "babaca", "otário", "desgraçado",
	}},
	{"hindi", []string{
		"बकवास", "गधा", "कुत्ता", "रंडी", "भोसड़ी", "मादरचोद", "भेनचोद",
		"गांडू", "चूतिया", "हरामी", "साला", "कमीना",
	}},
	{"arabic", []string{
		"خرا", "كلب", "حمار", "غبي", "أحمق", "لعين", "ابن كلب",
		"قحبة", "عاهرة", "منيك", "زبي", "كس",
	}},
	{"chinese", []string{
		"操", "妈的", "傻逼", "白痴", "混蛋", "王八蛋", "狗屎",
		"他妈的", "草泥马", "卧槽", "靠", "艹",
	}},
	{"japanese", []string{
		"くそ", "ばか", "あほ", "しね", "きちく", "やろう",
		"ちくしょう", "ふざけるな", "うざい", "むかつく",
	}},
	{"korean", []string{
		"씨발", "개새끼", "병신", "바보", "멍청이", "미친",
		"죽어", "꺼져", "닥쳐", "시발", "좆",
	}},
	{"russian", []string{
		"блядь", "сука", "пизда", "хуй", "говно", "дерьмо",
		"идиот", "дурак", "мудак", "козёл", "сволочь",
	}},
}

// socialKeywords are platform names (and common abbreviations) that flag
// contact sharing when they appear anywhere in the normalized text.
var socialKeywords = []string{
	"whatsapp", "telegram", "instagram", "facebook", "snapchat", "discord",
	"tiktok", "twitter", "linkedin", "skype", "viber", "wechat", "line",
	"kik", "signal", "wickr", "threema", "wire", "element", "riot",
	"watsapp", "insta", "fb", "snap", "disc", "tele", "gram",
}

// contactRequestPhrases flag attempts to move the conversation off platform.
var contactRequestPhrases = []string{
	"dm me", "message me", "text me", "call me", "add me", "contact me",
	"reach out", "get in touch", "my number", "my email", "my insta",
	"my snap", "my whatsapp", "my telegram", "my discord", "my skype",
	"hit me up", "ping me", "buzz me", "drop me", "shoot me",
	"send me", "give me your", "share your", "exchange numbers",
	"exchange contacts", "personal message", "private message",
	"outside chat", "off platform", "meet offline", "real life",
}
