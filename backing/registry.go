package backing

var backings = []matched{}

type matched struct {
	matcher     Matcher
	constructor Constructor
}

type Constructor func(uri string) (*Backing, error)

type Matcher func(uri string) bool

// Register makes a backing available to Open. It is meant to be called from
// an init function and is not safe for concurrent use.
func Register(constructor Constructor, matcher Matcher) {
	backings = append(backings, matched{
		constructor: constructor,
		matcher:     matcher,
	})
}

// Open returns a handle from the first registered backing matching uri.
func Open(uri string) (*Backing, error) {
	for _, s := range backings {
		if !s.matcher(uri) {
			continue
		}
		return s.constructor(uri)
	}

	return nil, ErrBackingNotFound
}
