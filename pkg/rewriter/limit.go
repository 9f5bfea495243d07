package rewriter

import (
	"fmt"
	"math/big"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// readLimit interprets a LIMIT expression. It returns nil when the query
// has no effective limit (no clause, LIMIT ALL, LIMIT NULL), along with the
// literal text when the clause is a numeric literal. On error the text is
// still filled in when there is one.
//
// Literals beyond int32 arrive from the parser as numeric text, so values
// are compared as big integers: a LIMIT too large for int64 is still a
// valid, and exceeding, request.
func readLimit(node *pg_query.Node) (*big.Int, string, error) {
	if node == nil {
		return nil, "", nil
	}

	c := node.GetAConst()
	if c == nil {
		return nil, "", &core.ArgumentError{Field: "limit", Reason: "LIMIT must be an integer literal"}
	}
	if c.GetIsnull() {
		return nil, "", nil
	}

	var (
		n    *big.Int
		text string
	)
	switch v := c.GetVal().(type) {
	case *pg_query.A_Const_Ival:
		n = big.NewInt(int64(v.Ival.GetIval()))
		text = n.String()
	case *pg_query.A_Const_Fval:
		text = v.Fval.GetFval()
		parsed, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, text, &core.ArgumentError{Field: "limit", Reason: fmt.Sprintf("LIMIT must be an integer, got %s", text)}
		}
		n = parsed
	default:
		return nil, "", &core.ArgumentError{Field: "limit", Reason: "LIMIT must be an integer literal"}
	}

	if n.Sign() < 0 {
		return nil, text, &core.ArgumentError{Field: "limit", Reason: "LIMIT must not be negative, got " + text}
	}
	return n, text, nil
}
