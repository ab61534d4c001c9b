package goRights_test

import (
	"context"
	"fmt"

	goRights "github.com/MrEthical07/goRights"
	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/role"
	"github.com/MrEthical07/goRights/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// ExampleNew builds an engine over the default catalogs and asks for three
// decisions.
func ExampleNew() {
	engine, err := goRights.New().Build()
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	user := &goRights.User{ID: "u-1", RoleNames: []string{"ROLE_DEFAULT"}}
	fmt.Println(engine.Decide(user, permission.Edit, resource.Calculation))
	fmt.Println(engine.Decide(user, permission.Delete, resource.Customer))
	fmt.Println(engine.Decide(user, permission.Show, "Invoice"))
	// Output:
	// grant
	// deny
	// abstain
}

// ExampleEngine_Permissions lists what a user may do with a customer.
func ExampleEngine_Permissions() {
	engine, err := goRights.New().Build()
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	user := &goRights.User{ID: "u-1", RoleNames: []string{role.NameUser}}
	fmt.Println(engine.Permissions(user, `App\Entity\Customer`))
	// Output: [list export show]
}

// ExampleEngine_UpdateResourceRights keeps tier rights in Redis and narrows
// what users may do with products.
func ExampleEngine_UpdateResourceRights() {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	engine, err := goRights.New().
		WithStore(store.NewRedis(rdb, store.DefaultRedisPrefix)).
		Build()
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	ctx := context.Background()
	if _, err := engine.UpdateResourceRights(ctx, role.TierUser, resource.Product, []string{permission.Show}); err != nil {
		panic(err)
	}

	user := &goRights.User{ID: "u-1", RoleNames: []string{role.NameUser}}
	fmt.Println(engine.Decide(user, permission.Show, resource.Product))
	fmt.Println(engine.Decide(user, permission.List, resource.Product))
	// Output:
	// grant
	// deny
}
