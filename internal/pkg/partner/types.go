package partner

import "encoding/json"

// Envelope is the partner's {code,msg,data} response wrapper.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type SyncUserPayload struct {
	BizhubUserID string `json:"bizhub_user_id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Phone        string `json:"phone,omitempty"`
}

type SyncUserResult struct {
	PartnerUserID string `json:"tk_saas_user_id"`
	IsNew         bool   `json:"is_new"`
	Synced        bool   `json:"synced"`
}

// IDType selects which identifier space user_id belongs to on shop lookups.
type IDType string

const (
	IDTypeBizhub  IDType = "bizhub"
	IDTypePartner IDType = "tksaas"
)

type Shop struct {
	ShopID     string `json:"shop_id"`
	ShopCode   string `json:"shop_code"`
	ShopName   string `json:"shop_name"`
	ShopType   string `json:"shop_type,omitempty"`
	Region     string `json:"region,omitempty"`
	Status     string `json:"status,omitempty"`
	ShopAvatar string `json:"shop_avatar,omitempty"`
	BoundAt    int64  `json:"bound_at,omitempty"` // unix seconds
}

type ShopList struct {
	Shops []Shop `json:"shops"`
	Total int    `json:"total"`
}
