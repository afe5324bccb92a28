package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Cost 当前使用的哈希强度，低于该值的旧哈希在登录成功后重新生成
var Cost = bcrypt.DefaultCost

// Hash 生成密码哈希
func Hash(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify 校验密码
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NeedsRehash 哈希参数是否需要升级
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != Cost
}
