package flags

import (
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/sboehler/coinbook/lib/common/date"
)

// DateFlag manages a flag to determine a date.
type DateFlag time.Time

var _ pflag.Value = (*DateFlag)(nil)

func (tf DateFlag) String() string {
	return tf.Value().String()
}

// Set implements pflag.Value.
func (tf *DateFlag) Set(v string) error {
	t, err := date.Parse(v)
	if err != nil {
		return err
	}
	*tf = (DateFlag)(t)
	return nil
}

// Type implements pflag.Value.
func (tf DateFlag) Type() string {
	return "YYYY-MM-DD"
}

// Value returns the flag value.
func (tf DateFlag) Value() time.Time {
	return time.Time(tf)
}

// ValueOr returns the flag value, or the given default if unset.
func (tf DateFlag) ValueOr(t time.Time) time.Time {
	v := tf.Value()
	if v.IsZero() {
		return t
	}
	return v
}

// RegexFlag manages a repeatable flag collecting regexes.
type RegexFlag struct {
	rxs []*regexp.Regexp
}

var _ pflag.Value = (*RegexFlag)(nil)

func (rf RegexFlag) String() string {
	var ss []string
	for _, r := range rf.rxs {
		ss = append(ss, r.String())
	}
	return strings.Join(ss, ",")
}

// Set implements pflag.Value.
func (rf *RegexFlag) Set(v string) error {
	t, err := regexp.Compile(v)
	if err != nil {
		return err
	}
	rf.rxs = append(rf.rxs, t)
	return nil
}

// Type implements pflag.Value.
func (rf RegexFlag) Type() string {
	return "<regex>"
}

// Value returns the collected regexes.
func (rf *RegexFlag) Value() []*regexp.Regexp {
	return rf.rxs
}
