package model

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "dinheiro"
	PaymentPix        PaymentMethod = "pix"
	PaymentCreditCard PaymentMethod = "cartao_credito"
	PaymentDebitCard  PaymentMethod = "cartao_debito"
	PaymentBoleto     PaymentMethod = "boleto"
)

// PaymentRule 支付方式元数据
type PaymentRule struct {
	Label string
	// Online 线上结算（无需配送员收款）
	Online bool
}

// PaymentRules 以支付方式为键的规则表
var PaymentRules = map[PaymentMethod]PaymentRule{
	PaymentCash:       {Label: "Dinheiro", Online: false},
	PaymentPix:        {Label: "PIX", Online: true},
	PaymentCreditCard: {Label: "Cartão de crédito", Online: true},
	PaymentDebitCard:  {Label: "Cartão de débito", Online: false},
	PaymentBoleto:     {Label: "Boleto bancário", Online: true},
}

func (m PaymentMethod) Valid() bool {
	_, ok := PaymentRules[m]
	return ok
}

func (m PaymentMethod) Label() string {
	if r, ok := PaymentRules[m]; ok {
		return r.Label
	}
	return string(m)
}
