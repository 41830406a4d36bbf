package normalize

// Rules returns the core rule table in application order.
//
// Folding runs before the structural rules so that, for example, a
// product holding a 0 collapses before anything is distributed over it.
func Rules() []Rule {
	return []Rule{
		{Name: "flatten", Apply: flatten},
		{Name: "fold-constants", Apply: foldConstants},
		{Name: "fold-predicate", Apply: foldPredicate},
		{Name: "eval-string-func", Apply: evalStringFunc},
		{Name: "squash", Apply: simplifySquash},
		{Name: "negation", Apply: simplifyNegation},
		{Name: "summation", Apply: simplifySummation},
		{Name: "promote-summation", Apply: promoteSummation},
		{Name: "distribute", Apply: distribute},
		{Name: "combine-squash", Apply: combineSquash},
		{Name: "dedup-factors", Apply: dedupFactors},
		{Name: "contradiction", Apply: contradiction},
	}
}
