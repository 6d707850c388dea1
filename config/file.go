/*
DESCRIPTION
  file.go provides loading of config variables from a parameter file of
  KEY=value lines.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

// ReadFile returns the variables held in the parameter file at path.
func ReadFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("could not read parameter file %s: %w", path, err)
	}
	return vars, nil
}

// Load reads the parameter file at path into c and validates the result.
// Unknown keys are returned as an error after the known ones are applied.
func (c *Config) Load(path string) error {
	vars, err := ReadFile(path)
	if err != nil {
		return err
	}
	uerr := c.Update(vars)
	err = c.Validate()
	if err != nil {
		return err
	}
	return uerr
}
