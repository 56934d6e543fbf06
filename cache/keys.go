package cache

// Key identifies one logical resource in the cache. Segments are ordered:
// the first names the resource type, later ones narrow it down to filters or
// a specific entity, so a bare resource key is a prefix of every variant of
// that resource.
type Key []string

// String renders the key in its canonical slot form.
func (k Key) String() string {
	out := ""
	for i, seg := range k {
		if i > 0 {
			out += "/"
		}
		out += seg
	}
	return out
}

// HasPrefix reports whether k starts with every segment of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, seg := range prefix {
		if k[i] != seg {
			return false
		}
	}
	return true
}

// The closed set of key builders, one per logical resource. Each builder is
// pure: same arguments, same key, same cache slot.

func SalesKey() Key { return Key{"sales"} }

// SalesFilteredKey narrows the sales collection by filter segments; it
// shares the SalesKey prefix so coarse invalidation reaches it.
func SalesFilteredKey(filters ...string) Key { return append(Key{"sales"}, filters...) }

func SaleByIDKey(id string) Key { return Key{"sales", id} }

func SalesStatsKey() Key { return Key{"sales", "stats"} }

func CommissionsKey() Key { return Key{"commissions"} }

func CommissionByIDKey(id string) Key { return Key{"commissions", id} }

func PaymentsKey() Key { return Key{"payments"} }

func PaymentByIDKey(id string) Key { return Key{"payments", id} }

func AffiliatesKey() Key { return Key{"affiliates"} }

func AffiliateByIDKey(id string) Key { return Key{"affiliates", id} }

func AffiliateBalanceKey(id string) Key { return Key{"affiliates", id, "balance"} }

func AdvertisersKey() Key { return Key{"advertisers"} }

func CampaignsKey() Key { return Key{"campaigns"} }

func CampaignByIDKey(id string) Key { return Key{"campaigns", id} }

func DashboardKey() Key { return Key{"dashboard"} }

func DashboardStatsKey(role string) Key { return Key{"dashboard", "stats", role} }
