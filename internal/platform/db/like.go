package db

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// MySQL では '\' がリテラル内でもエスケープ扱いになるので '!' を使う
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Contains matches col against s as a plain substring. % と _ はワイルドカードにならない。
// 大文字小文字は両DBの既定照合順序に従い区別しない。
func Contains(col, s string) exp.LiteralExpression {
	return goqu.L(`? LIKE ? ESCAPE '!'`, goqu.I(col), "%"+likeEscaper.Replace(s)+"%")
}
