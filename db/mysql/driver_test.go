package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarget_HidesCredentials(t *testing.T) {
	target, err := Target("tactics:s3cret@tcp(db.local:3306)/skirmish?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "tcp(db.local:3306)/skirmish", target)
	assert.NotContains(t, target, "s3cret")

	_, err = Target("no slash here")
	assert.Error(t, err)
}

func TestPool_Defaults(t *testing.T) {
	assert.Equal(t, Pool{MaxOpen: 20, MaxIdle: 5, MaxLife: time.Hour}, Pool{}.withDefaults())
	assert.Equal(t, Pool{MaxOpen: 2, MaxIdle: 2, MaxLife: time.Minute},
		Pool{MaxOpen: 2, MaxIdle: 8, MaxLife: time.Minute}.withDefaults(), "idle never exceeds open")
}

func TestOpen_BadDSN(t *testing.T) {
	_, err := Open("no slash here", Pool{}, nil)
	assert.ErrorContains(t, err, "mysql dsn")
}
