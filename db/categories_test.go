package db

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSetCategory(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// a new category without a UUID gets one assigned
	categoryUUID, err := testDB.SetCategory(&Category{
		Name:    testCategoryName,
		NestID:  2,
		Visible: true,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(categoryUUID, qt.Not(qt.Equals), "")
	category, err := testDB.Category(categoryUUID)
	c.Assert(err, qt.IsNil)
	c.Assert(category.Name, qt.Equals, testCategoryName)
	c.Assert(category.NestID, qt.Equals, uint64(2))
	// update keeps the UUID and flips visibility
	category.Visible = false
	sameUUID, err := testDB.SetCategory(category)
	c.Assert(err, qt.IsNil)
	c.Assert(sameUUID, qt.Equals, categoryUUID)
	category, err = testDB.Category(categoryUUID)
	c.Assert(err, qt.IsNil)
	c.Assert(category.Visible, qt.IsFalse)
}

func TestCategories(t *testing.T) {
	defer func() {
		if err := testDB.Reset(); err != nil {
			t.Error(err)
		}
	}()
	c := qt.New(t)
	// empty storefront
	categories, err := testDB.Categories(false)
	c.Assert(err, qt.IsNil)
	c.Assert(categories, qt.HasLen, 0)
	for _, cat := range []*Category{
		{Name: "Minecraft", Visible: true},
		{Name: "Rust", Visible: true},
		{Name: "Retired", Visible: false},
	} {
		_, err := testDB.SetCategory(cat)
		c.Assert(err, qt.IsNil)
	}
	categories, err = testDB.Categories(false)
	c.Assert(err, qt.IsNil)
	c.Assert(categories, qt.HasLen, 3)
	// only the visible ones
	categories, err = testDB.Categories(true)
	c.Assert(err, qt.IsNil)
	c.Assert(categories, qt.HasLen, 2)
	// delete a category
	c.Assert(testDB.DelCategory(categories[0].UUID), qt.IsNil)
	_, err = testDB.Category(categories[0].UUID)
	c.Assert(err, qt.Equals, ErrNotFound)
}
