package secure

// Rule and RuleList mirror the handful of ietf-netconf-acm fields the
// anonymous-access policy (spec §4.8) actually inspects. The full NACM rule
// evaluation (RFC 8341) belongs to the datastore engine, which is an
// out-of-scope external collaborator per spec §1; this gateway only ever
// asks "is anonymous access permitted right now", which depends on just the
// shape below.
type Rule struct {
	ModuleName       string // "*" for wildcard
	AccessOperations string // e.g. "read", "*"
	Action           string // "permit" | "deny"
}

type RuleList struct {
	Groups []string
	Rules  []Rule
}

// AnonymousGroup is the well-known NACM group name anonymous sessions are
// placed in for the purpose of rule evaluation.
const AnonymousGroup = "anonymous"

// AnonymousAccessAllowed implements spec §4.8's anonymous-access policy,
// the stricter of the two predicates found in original_source (design note
// Open Question, resolved in favor of the newest variant): it holds iff the
// *first* rule-list names the anonymous group, every rule in it except the
// last has access-operations "read" (its action is not checked), and the
// last rule is a wildcard deny-all.
// Any other shape — including the looser variant that only breaks after
// the first rule-list but still consults subsequent ones — disables
// anonymous access.
func AnonymousAccessAllowed(ruleLists []RuleList) bool {
	if len(ruleLists) == 0 {
		return false
	}
	first := ruleLists[0]
	if !containsGroup(first.Groups, AnonymousGroup) {
		return false
	}
	if len(first.Rules) == 0 {
		return false
	}
	for _, r := range first.Rules[:len(first.Rules)-1] {
		if r.AccessOperations != "read" {
			return false
		}
	}
	last := first.Rules[len(first.Rules)-1]
	return last.ModuleName == "*" && last.Action == "deny"
}

func containsGroup(groups []string, want string) bool {
	for _, g := range groups {
		if g == want {
			return true
		}
	}
	return false
}
