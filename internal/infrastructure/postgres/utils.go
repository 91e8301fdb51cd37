package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgErrCode extrae el código SQLSTATE de un error de pgx, o "" si no lo hay.
func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if pgErrCode(err) == "23505" { // unique_violation
		return true
	}
	return strings.Contains(err.Error(), "23505")
}

// isCheckViolation verifica si un error es una violación de constraint CHECK
// (23514). El esquema exige current_quantity >= 0, así que la base de datos es
// la última barrera contra un saldo negativo.
func isCheckViolation(err error) bool {
	return pgErrCode(err) == "23514" // check_violation
}
