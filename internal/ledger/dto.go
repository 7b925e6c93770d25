package ledger

import "github.com/frahmantamala/key-management/internal/core/common/validation"

type IssueRequest struct {
	Barcode string `json:"barcode"`
}

func (r IssueRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("barcode", r.Barcode).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type CardIssueRequest struct {
	CardCode string `json:"card_code"`
}

func (r CardIssueRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("card_code", r.CardCode).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ReturnRequest struct {
	Barcode string `json:"barcode"`
}

func (r ReturnRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("barcode", r.Barcode).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
