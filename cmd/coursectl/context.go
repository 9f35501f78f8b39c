package main

import (
	"sync"

	"github.com/sahilchouksey/ai-course-generator/config"
	"github.com/sahilchouksey/ai-course-generator/database"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"gorm.io/gorm"
)

type commandContext struct {
	envOnce sync.Once
	env     *config.EnviornmentVariable
	envErr  error

	storeOnce sync.Once
	store     database.Storage
	storeErr  error

	// openStore is replaced in tests
	openStore func(env *config.EnviornmentVariable) (database.Storage, error)
}

func newCommandContext() *commandContext {
	return &commandContext{
		openStore: func(env *config.EnviornmentVariable) (database.Storage, error) {
			store, err := database.StartGORM(env, utils.NopLogger())
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	}
}

func (c *commandContext) ensureEnv() (*config.EnviornmentVariable, error) {
	c.envOnce.Do(func() {
		if err := config.LoadENV(); err != nil {
			c.envErr = err
			return
		}
		c.env, c.envErr = config.Get()
	})
	return c.env, c.envErr
}

func (c *commandContext) ensureStore() (database.Storage, error) {
	c.storeOnce.Do(func() {
		env, err := c.ensureEnv()
		if err != nil {
			c.storeErr = err
			return
		}
		c.store, c.storeErr = c.openStore(env)
	})
	return c.store, c.storeErr
}

func (c *commandContext) withDB(fn func(db *gorm.DB) error) error {
	store, err := c.ensureStore()
	if err != nil {
		return err
	}
	return fn(store.DB())
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}
