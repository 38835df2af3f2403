package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotUnverified は確認済み化の対象レコードが未確認状態でなかったことを表す。
// 同一トークンの検証が並行して走った場合、敗れた側がこのエラーを受け取る。
var ErrNotUnverified = errors.New("account is not in unverified state")

// IsUniqueViolation は一意制約違反（SQLSTATE 23505）かを判定する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
