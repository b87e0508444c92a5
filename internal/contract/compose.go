package contract

import (
	"fmt"
	"time"

	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/installment"
)

// Executor holds the seller's requisites printed in the preamble and the
// signature section.
type Executor struct {
	Name     string `mapstructure:"name" json:"name"`
	Director string `mapstructure:"director" json:"director"`
	Address  string `mapstructure:"address" json:"address"`
	Phone    string `mapstructure:"phone" json:"phone"`
	Account  string `mapstructure:"account" json:"account"`
	Bank     string `mapstructure:"bank" json:"bank"`
	MFO      string `mapstructure:"mfo" json:"mfo"`
	TIN      string `mapstructure:"tin" json:"tin"`
	City     string `mapstructure:"city" json:"city"`
}

// Input is everything a contract is composed from. The apartment and client
// are snapshots taken at submission time.
type Input struct {
	PaymentID int64             `json:"payment_id"`
	Apartment domain.Apartment  `json:"apartment"`
	Client    domain.Client     `json:"client"`
	Terms     installment.Terms `json:"terms"`
	DueDay    int               `json:"due_day"`
	IssueDate time.Time         `json:"issue_date"`
	Executor  Executor          `json:"executor"`
}

type composer struct {
	blocks []Block
}

func (c *composer) add(kind BlockKind, format string, args ...any) {
	c.blocks = append(c.blocks, Block{Kind: kind, Text: fmt.Sprintf(format, args...)})
}

func (c *composer) blank() {
	c.blocks = append(c.blocks, Block{Kind: Blank})
}

// Compose builds the contract for a committed payment. The output depends on
// in alone, so equal inputs yield byte-identical documents.
func Compose(in Input) Document {
	apt := in.Apartment
	cl := in.Client
	ex := in.Executor
	terms := in.Terms

	clientName := clean(cl.FullName)
	executorName := orDash(ex.Name)

	c := &composer{}

	c.add(Heading, "%s %d", TitleMarker, in.PaymentID)
	c.add(Body, "ko'chmas mulk (kvartira) sotish-sotib olish to'g'risida")
	c.blank()
	c.add(Body, "%s sh.  %s", orDash(ex.City), FormatDate(in.IssueDate))
	c.blank()
	c.add(Body, "\"%s\", keyingi o'rinlarda \"Ijrochi\" deb yuritiladi, direktor %s shaxsida, bir tomondan, "+
		"va fuqaro %s (pasport %s), keyingi o'rinlarda \"Mijoz\" deb yuritiladi, ikkinchi tomondan, "+
		"quyidagilar haqida ushbu shartnomani tuzdilar:",
		executorName, orDash(ex.Director), clientName, orDash(cl.Passport))
	c.blank()

	c.add(SectionTitle, "I. SHARTNOMA PREDMETI / ПРЕДМЕТ ДОГОВОРА")
	c.add(Clause, "1.1. Ijrochi Mijozga \"%s\" turar-joy majmuasidagi %d-qavatda joylashgan %s-raqamli, "+
		"%d xonali, umumiy maydoni %s m² bo'lgan kvartirani (keyingi o'rinlarda \"Kvartira\") sotadi, "+
		"Mijoz esa uni qabul qiladi va haqini ushbu shartnomada belgilangan tartibda to'laydi.",
		orDash(apt.ObjectName), apt.Floor, orDash(apt.RoomNumber), apt.Rooms, FormatNumber(apt.Area))
	c.add(Clause, "1.2. Ijrochi Kvartira shartnoma tuzilgan kunda boshqa shaxslarga sotilmaganligi, "+
		"garovda va taqiq ostida emasligini kafolatlaydi.")
	c.blank()

	c.add(SectionTitle, "II. SHARTNOMANING ASOSIY SHARTLARI / СУЩЕСТВЕННЫЕ УСЛОВИЯ ДОГОВОРА")
	c.add(Clause, "2.1. Kvartiraning umumiy narxi %s ni tashkil etadi.", FormatAmount(terms.TotalAmount))
	c.add(Clause, "2.2. To'lov turi: %s.", paymentTypeLabel(terms.Type))
	if terms.Type.Financed() {
		c.add(Clause, "2.3. Boshlang'ich to'lov %s bo'lib, shartnoma imzolangan kuni to'lanadi.",
			FormatAmount(terms.InitialPayment))
		if terms.InterestRate.IsZero() {
			c.add(Clause, "2.4. Qolgan %s summaga ustama qo'llanilmaydi.", FormatAmount(terms.Principal()))
		} else {
			c.add(Clause, "2.4. Qolgan %s summaga %s ustama qo'llaniladi, ustama bilan to'lanadigan summa %s.",
				FormatAmount(terms.Principal()), formatRate(terms.InterestRate), FormatAmount(terms.Financed()))
		}
		c.add(Clause, "2.5. Ustama bilan to'lanadigan summa %d oy davomida har oy %s miqdorida to'lanadi.",
			terms.DurationMonths, FormatAmount(terms.MonthlyPayment))
		if terms.Type == domain.PaymentMortgage {
			c.add(Clause, "2.6. Ipoteka krediti Mijoz va bank o'rtasida alohida tuziladigan kredit shartnomasi "+
				"asosida rasmiylashtiriladi.")
		}
	} else {
		c.add(Clause, "2.3. Mijoz Kvartira narxini shartnoma imzolangan kundan boshlab 10 (o'n) bank kuni ichida "+
			"to'liq to'laydi.")
	}
	c.blank()

	c.add(SectionTitle, "III. HISOB-KITOB TARTIBI / ПОРЯДОК РАСЧЁТОВ")
	c.add(Clause, "3.1. To'lovlar Ijrochining quyida ko'rsatilgan hisob raqamiga yoki kassasiga amalga oshiriladi.")
	if terms.Type.Financed() {
		c.add(Clause, "3.2. Har oylik to'lov har oyning %d-sanasidan kechiktirmay amalga oshiriladi.", dueDay(in.DueDay))
	} else {
		c.add(Clause, "3.2. Pul mablag'lari Ijrochining hisob raqamiga tushgan kun to'lov kuni hisoblanadi.")
	}
	c.add(Clause, "3.3. Mijoz to'lovni kechiktirgan taqdirda Ijrochi quyidagilarga haqli:")
	c.add(Clause, "a) kechiktirilgan har bir kun uchun to'lanmagan summaning 0,1 foizi miqdorida penya undirish;")
	c.add(Clause, "b) to'lov uch oydan ortiq kechiktirilganda shartnomani bir tomonlama bekor qilish.")
	c.add(Clause, "3.4. Mijoz to'lovlarni muddatidan oldin amalga oshirishga haqli.")
	c.blank()

	c.add(SectionTitle, "IV. SHARTNOMANING AMAL QILISH MUDDATI VA BEKOR QILINISHI / СРОК ДЕЙСТВИЯ И РАСТОРЖЕНИЕ ДОГОВОРА")
	c.add(Clause, "4.1. Shartnoma imzolangan kundan kuchga kiradi va tomonlar o'z majburiyatlarini to'liq "+
		"bajargunga qadar amal qiladi.")
	c.add(Clause, "4.2. Shartnoma tomonlarning kelishuvi bilan yoki qonunchilikda nazarda tutilgan hollarda "+
		"bekor qilinishi mumkin.")
	c.add(Clause, "4.3. Kvartiraga bo'lgan mulk huquqi Mijozga to'lov to'liq amalga oshirilgandan so'ng o'tadi.")
	c.blank()

	guarantor := cl.Guarantor
	if guarantor != nil && clean(guarantor.Name) == "" {
		guarantor = nil
	}

	c.add(SectionTitle, "V. YAKUNIY QOIDALAR / ЗАКЛЮЧИТЕЛЬНЫЕ ПОЛОЖЕНИЯ")
	c.add(Clause, "5.1. Nizolar muzokaralar yo'li bilan, kelishuvga erishilmaganda O'zbekiston Respublikasi "+
		"qonunchiligiga muvofiq sud tartibida hal qilinadi.")
	c.add(Clause, "5.2. Shartnoma bir xil yuridik kuchga ega ikki nusxada tuzildi.")
	if guarantor != nil {
		c.add(Clause, "5.3. Mijozning ushbu shartnoma bo'yicha majburiyatlari bajarilishi uchun %s kafil sifatida "+
			"javobgar bo'ladi.", clean(guarantor.Name))
	}
	c.blank()

	c.add(SectionTitle, "VI. TOMONLARNING REKVIZITLARI VA IMZOLARI / РЕКВИЗИТЫ И ПОДПИСИ СТОРОН")
	c.add(PartyLabel, "IJROCHI: %s", executorName)
	c.add(Body, "Manzil: %s", orDash(ex.Address))
	c.add(Body, "Telefon: %s", orDash(ex.Phone))
	c.add(Body, "H/r: %s", orDash(ex.Account))
	c.add(Body, "Bank: %s, MFO: %s", orDash(ex.Bank), orDash(ex.MFO))
	c.add(Body, "STIR: %s", orDash(ex.TIN))
	c.add(Body, "Direktor: ________________ %s", orDash(ex.Director))
	c.blank()

	c.add(PartyLabel, "MIJOZ: %s", clientName)
	c.add(Body, "Pasport: %s", orDash(cl.Passport))
	c.add(Body, "Manzil: %s", orDash(cl.Address))
	c.add(Body, "Telefon: %s", orDash(cl.Phone))
	c.add(Body, "Imzo: ________________")

	if guarantor != nil {
		c.blank()
		c.add(PartyLabel, "KAFIL: %s", clean(guarantor.Name))
		c.add(Body, "Manzil: %s", orDash(guarantor.Address))
		c.add(Body, "Telefon: %s", orDash(guarantor.Phone))
		c.add(Body, "Imzo: ________________")
	}

	return Document{PaymentID: in.PaymentID, Blocks: c.blocks}
}

func paymentTypeLabel(t domain.PaymentType) string {
	switch t {
	case domain.PaymentCash:
		return "naqd pul bilan to'liq to'lov"
	case domain.PaymentInstallment:
		return "muddatli to'lov"
	case domain.PaymentMortgage:
		return "ipoteka krediti"
	default:
		return string(t)
	}
}

func dueDay(day int) int {
	if day < 1 || day > 31 {
		return 1
	}
	return day
}
