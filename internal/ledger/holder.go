package ledger

import "strings"

// Holder identifies who receives a key. Exactly one of the two forms is
// used: a user already authenticated by the session layer, or a card code
// scanned at the desk.
type Holder struct {
	userID   string
	cardCode string
}

// BySessionUser is the self-service form: the caller has already
// authenticated the user.
func BySessionUser(userID string) Holder {
	return Holder{userID: userID}
}

// ByCardCode is the administrator-mediated form.
func ByCardCode(code string) Holder {
	return Holder{cardCode: strings.TrimSpace(code)}
}

func (h Holder) IsCardCode() bool {
	return h.userID == ""
}

func (h Holder) String() string {
	if h.IsCardCode() {
		return "card:" + h.cardCode
	}
	return "user:" + h.userID
}
