package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestEntitlementRecordPeriodColumns(t *testing.T) {
	s, err := schema.Parse(&EntitlementRecord{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	for _, name := range []string{"PeriodStart", "PeriodEnd"} {
		field := s.LookUpField(name)
		require.NotNil(t, field, name)
		assert.Equal(t, schema.DataType("datetime"), field.DataType, name)
	}
}
