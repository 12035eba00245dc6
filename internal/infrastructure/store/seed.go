package store

import (
	"context"

	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	exampleThumbnail = "https://en.wikipedia.org/static/images/icons/wikipedia.png"
	exampleGallery   = "https://commons.wikimedia.org/wiki/File:Box_of_Marbles.jpg"
)

func discount(pct float32) *float32 { return &pct }

// ExampleProducts is the demo catalog loaded into an empty store.
func ExampleProducts() []product.NewProduct {
	return []product.NewProduct{
		{Name: "Red Apple", Price: 120, Inventory: 100, Category: "Produce", Tags: "Fruit,Healthy", Keywords: "apple,malus",
			Tagline: "A crisp, tasty red apple!", Description: "Only the freshest...", DiscountPercent: discount(10)},
		{Name: "Green Apple", Price: 110, Inventory: 130, Category: "Produce", Tags: "Fruit,Healthy", Keywords: "red,apple,malus",
			Tagline: "A crisp, tangy green apple!", Description: "Only the luigiest..."},
		{Name: "Coffee", Price: 720, Inventory: 34, Category: "Beverage", Tags: "Caffeine", Keywords: "brewed,hot",
			Tagline: "Burnt roast from elsewhere!", Description: "Only the coffeeiest..."},
		{Name: "Tea", Price: 400, Inventory: 50, Category: "Beverage", Tags: "Caffeine", Keywords: "brewed,cold",
			Tagline: "Bagged!", Description: "Mostly unspilled!", DiscountPercent: discount(5)},
		{Name: "Malk", Price: 110, Inventory: 7, Category: "Beverage", Tags: "Dairy", Keywords: "cold",
			Tagline: "Now with Vitamin R", Description: "From the pastures of..."},
		{Name: "Kernberry Pie", Price: 12379, Inventory: 8, Category: "Bakery", Tags: "Pie", Keywords: "kern,berry",
			Tagline: "For eating!", Description: "Loaded with the juiciest Kernberries..."},
		{Name: "Rust Cookie", Price: 399, Inventory: 50, Category: "Bakery", Tags: "Rust,Cookie", Keywords: "rusty",
			Tagline: "Disgusting!", Description: "Some people like it.", DiscountPercent: discount(25)},
	}
}

// SeedExampleProducts inserts ExampleProducts when repo holds no products.
// It returns the number of products inserted.
func SeedExampleProducts(ctx context.Context, repo product.Repository) (int, error) {
	existing, err := repo.Count(ctx, product.Filter{})
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		log.WithField("existing", existing).Info("products already exist, skipping seed")
		return 0, nil
	}

	examples := ExampleProducts()
	for i := range examples {
		examples[i].ThumbnailURL = exampleThumbnail
		examples[i].GalleryURLs = exampleGallery
		if _, err := repo.Insert(ctx, examples[i]); err != nil {
			return i, errors.Wrapf(err, "seed %q", examples[i].Name)
		}
	}
	log.WithField("count", len(examples)).Info("seeded example products")
	return len(examples), nil
}
