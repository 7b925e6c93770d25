package key

import (
	"github.com/frahmantamala/key-management/internal/core/common/validation"
)

type CreateKeyDTO struct {
	Name     string `json:"name"`
	Barcode  string `json:"barcode"`
	Location string `json:"location"`
}

func (d CreateKeyDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("barcode", d.Barcode).Required().MaxLength(128)
	v.Field("location", d.Location).Required().MaxLength(200)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type KeysResponse struct {
	Keys []Key `json:"keys"`
}
