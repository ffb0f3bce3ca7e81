package consts

// Menu buttons. Inbound text is matched against these exactly.
const (
	ButtonQuote     = "🌅 Получить цитату"
	ButtonBookClub  = "📚 Женский книжный клуб"
	ButtonAboutMe   = "👤 Обо мне"
	ButtonGame      = "Игра матрешка"
	CommandStart    = "/start"
	CommandHelp     = "/help"
	CommandAdminTop = "/admin_stats"
)

// Inline buttons
const (
	ButtonJoinClub    = "📖 Записаться в книжный клуб"
	ButtonBookSession = "💫 Записаться на прием"
	ButtonPlay        = "Играть"
	ContactURL        = "https://t.me/viktoria_albu"
)

// Analytics action types
const (
	ActionMessageReceived = "message_received"
	ActionQuoteRequested  = "quote_requested"
	ActionQuoteDenied     = "quote_denied"
	ActionQuoteDelivered  = "quote_delivered"
	ActionQuoteError      = "quote_error"
	ActionBookClubOpened  = "womens_club_opened"
	ActionBookClubError   = "womens_club_error"
	ActionAboutOpened     = "about_opened"
	ActionAboutError      = "about_error"
	ActionGameOpened      = "game_opened"
	ActionGameError       = "game_error"
)

// Delivery copy
const (
	WelcomeMessage = "Добро пожаловать! Нажми кнопку ниже, чтобы получить цитату."

	QuoteSearchingMessage = "🔍 *Ищем для вас идеальную цитату...*\n\n⏳ Подбираем соответствующее изображение..."
	QuoteReadyMessage     = "✅ *Готово!* Ваша цитата найдена 💫"
	QuoteDeniedMessage    = "⏳ *На сегодня цитата уже получена*\n\nЗавтра вас ждет новая порция мудрости и вдохновения! 🌅\n\n*Возвращайтесь после полуночи* 💫"
	QuoteApologyMessage   = "😔 Не удалось отправить цитату. Попробуйте, пожалуйста, позже."

	// UnknownAuthor replaces an empty author from the remote quote provider.
	UnknownAuthor = "Неизвестный автор"
)

// Static pages
const (
	LoadingClubMessage  = "👩‍👩‍👧‍👧 *Загружаем информацию о клубе...*"
	LoadingInfoMessage  = "👤 *Загружаем информацию...*"
	UnavailableMessage  = "Временно недоступно. Попробуйте позже."
	NoPhotosMessage     = "Фотографии временно недоступны."
	NoRightsMessage     = "❌ Недостаточно прав"
	StatsFailedMessage  = "❌ Ошибка получения статистики"
	StatsNoDBMessage    = "❌ Статистика недоступна: база данных не настроена"
	JoinClubPrompt      = "💫 *Хотите присоединиться к нашему сообществу?*"
	BookClubPhotosDir   = "images/womens"
	AboutPhotoPath      = "images/self/about.jpg"
	GameVideoPath       = "video/game.mp4"
	MaxBookClubPhotos   = 5
	GameMessagePauseMS  = 1000
)

const BookClubCaption = `📚 *Женский книжный клуб*

✨ *Пространство, создаваемое вместе с вами* 🕊️

*Что мы делаем:*
• 🗣️ Разбираем важные темы
• 💖 Находим поддержку
• 🌱 Учимся понимать себя
• ✨ Вдохновляем и вдохновляемся

*Без стереотипов. Без осуждения. Честно к себе.* 💫`

const AboutCaption = `🌿 *Виктория Албу*

*Гештальт-терапевт | Семейный психолог*

✨ *Я помогаю женщинам возвращаться к себе* и строить отношения, в которых по-настоящему комфортно и безопасно.

🛡️ *В моем пространстве можно безопасно:*
• Увидеть свою глубину и перестать себя упрекать
• Разрешить себе быть разной — сильной и нежной
• Научиться любить себя просто потому, что вы есть
• Построить отношения, где вас слышат и уважают

*Давайте знакомиться!* Ваш путь к себе начинается здесь.`

const GameCaption = `🎮 *Игра «Матрёшка»*

✨ Собирает целостный образ вас и помогает получить завершение неоконченных ситуаций, которые вытягивают вашу энергию.`

// GameMessages are sent one after another below the game video.
var GameMessages = []string{
	`🎯 *Что такое игра «Матрёшка»?*

✨ *Это глубокая психологическая практика*, которая помогает:

• 🧩 Собрать целостный образ себя
• ⚡ Получить разрядку незавершенных ситуаций
• 💫 Вернуть энергию, которую забирают прошлые травмы
• 🌱 Создать новые стратегии поведения`,

	`🧸 *Символика матрёшек:*

• 🎎 *Большая матрёшка* — это наш взрослый аватар, та версия себя, которую мы показываем миру
• 🪆 *Маленькие матрёшки* — утраченные части нас: забытые таланты, подавленные чувства, то, что нельзя было проявлять в прошлом

🎯 *Задача игры:* присвоить себе утраченные части и вернуть себе ресурс.`,

	`🌱 *Результат:*
• Формируются новые поведенческие стратегии
• Разрешаются глубинные запросы
• Возвращается энергия и радость жизни
• Появляется ясность и понимание себя

🎮 Хотите попробовать?`,
}

// ImageKeywords feed the stock-photo search.
var ImageKeywords = []string{
	"sunrise",
	"mountains",
	"ocean",
	"forest",
	"flowers",
	"sky",
	"nature",
	"calm lake",
	"autumn",
	"meadow",
}

// Generation prompt parts. Text in the picture ruins a quote card, hence the
// explicit ban on letters.
const (
	GenerationStyle    = "атмосферная иллюстрация, мягкий свет, пастельные тона, высокая детализация"
	GenerationNegative = "текст, буквы, надписи, подписи, водяные знаки, логотипы, цифры"
	GenerationWidth    = 1024
	GenerationHeight   = 576
)

// LocalQuote is an entry of the embedded fallback pool.
type LocalQuote struct {
	Text    string
	Content string
}

var LocalQuotes = []LocalQuote{
	{
		Text:    "Всё приходит вовремя для того, кто умеет ждать. — © Оноре де Бальзак",
		Content: "всё приходит вовремя для того кто умеет ждать",
	},
	{
		Text:    "Мысль — начало всего. И мыслями можно управлять. И потому главное дело совершенствования: работать над мыслями. — © Лев Толстой",
		Content: "мысль начало всего и мыслями можно управлять",
	},
	{
		Text:    "Ваше время ограничено, не тратьте его, живя чужой жизнью. — © Стив Джобс",
		Content: "ваше время ограничено не тратьте его живя чужой жизнью",
	},
	{
		Text:    "Самый главный человек — тот, кто перед тобой. — © Фёдор Достоевский",
		Content: "самый главный человек тот кто перед тобой",
	},
	{
		Text:    "Никогда не поздно уйти из толпы. Следуй за своей мечтой, двигайся к своей цели. — © Бернард Шоу",
		Content: "никогда не поздно уйти из толпы следуй за своей мечтой",
	},
}
