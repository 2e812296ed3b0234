package repo

import "golang.org/x/crypto/bcrypt"

// HashAdminPassword hashes an admin password at the given bcrypt cost
// (config.AdminBcryptCost, 8 by default).
func HashAdminPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckAdminPassword reports whether password matches hash.
func CheckAdminPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
