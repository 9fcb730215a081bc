package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductURL(t *testing.T) {
	assert.Equal(t, "https://www.ah.nl/producten/product/wi193679", ProductURL("wi193679"))
	assert.Equal(t, "", ProductURL(""))
}

func TestIsDiscounted(t *testing.T) {
	discounted := ProductRecord{
		CurrentPrice:  Price{Amount: 2.49},
		OriginalPrice: Price{Amount: 3.29},
	}
	assert.True(t, discounted.IsDiscounted())

	regular := ProductRecord{
		CurrentPrice:  Price{Amount: 1.99},
		OriginalPrice: Price{Amount: 1.99},
	}
	assert.False(t, regular.IsDiscounted())
}
