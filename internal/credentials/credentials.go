package credentials

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const (
	serviceName    = "paybridge"
	keyMerchantKey = "merchant_public_key"
)

var ErrNotFound = errors.New("credentials: not found")

// StoreMerchantKey keeps the merchant public key for an environment so the
// dev harness can auto-init without the key living in a config file.
func StoreMerchantKey(environment string, key string) error {
	return keyring.Set(serviceName, environment+":"+keyMerchantKey, key)
}

func LoadMerchantKey(environment string) (string, error) {
	val, err := keyring.Get(serviceName, environment+":"+keyMerchantKey)
	if err != nil {
		return "", ErrNotFound
	}
	return val, nil
}

func DeleteMerchantKey(environment string) {
	_ = keyring.Delete(serviceName, environment+":"+keyMerchantKey)
}

func StoreAppSecret(key string, value string) error {
	return keyring.Set(serviceName, "app:"+key, value)
}

func LoadAppSecret(key string) (string, error) {
	val, err := keyring.Get(serviceName, "app:"+key)
	if err != nil {
		return "", ErrNotFound
	}
	return val, nil
}

func DeleteAppSecret(key string) {
	_ = keyring.Delete(serviceName, "app:"+key)
}
