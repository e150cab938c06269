package faucet_protocol

import (
	"encoding/json"
	"fmt"
	"sync"
)

// IDL is the subset of an Anchor IDL the client reads: instruction and account names
// for log output and the program's error table.
type IDL struct {
	Version      string              `json:"version"`
	Name         string              `json:"name"`
	Instructions []IDLInstruction    `json:"instructions"`
	Accounts     []IDLTypeDefinition `json:"accounts"`
	Errors       []IDLError          `json:"errors"`
}

type IDLInstruction struct {
	Name     string       `json:"name"`
	Args     []IDLField   `json:"args"`
	Accounts []IDLAccount `json:"accounts"`
}

type IDLField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type IDLAccount struct {
	Name     string `json:"name"`
	IsMut    bool   `json:"isMut"`
	IsSigner bool   `json:"isSigner"`
}

type IDLTypeDefinition struct {
	Name string `json:"name"`
	Type struct {
		Kind   string     `json:"kind"`
		Fields []IDLField `json:"fields"`
	} `json:"type"`
}

type IDLError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

func ParseIDL(idlBytes []byte) (*IDL, error) {
	var idl IDL
	err := json.Unmarshal(idlBytes, &idl)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling IDL JSON: %w", err)
	}
	return &idl, nil
}

var (
	initIdlOnce  sync.Once
	initIdlErr   error
	idlData      *IDL
	errorsByCode map[int]IDLError
)

func initializeIDL() error {
	initIdlOnce.Do(func() {
		idlData, initIdlErr = ParseIDL([]byte(idlJSON))
		if initIdlErr != nil {
			return
		}
		errorsByCode = make(map[int]IDLError, len(idlData.Errors))
		for _, e := range idlData.Errors {
			errorsByCode[e.Code] = e
		}
	})
	return initIdlErr
}

// LookupProgramError returns the IDL entry for a custom program error code.
func LookupProgramError(code int) (IDLError, bool) {
	if err := initializeIDL(); err != nil {
		return IDLError{}, false
	}
	e, ok := errorsByCode[code]
	return e, ok
}

// ProgramIDL returns the embedded program IDL.
func ProgramIDL() (*IDL, error) {
	if err := initializeIDL(); err != nil {
		return nil, fmt.Errorf("failed to initialize IDL: %w", err)
	}
	return idlData, nil
}

const idlJSON = `{
  "version": "0.1.0",
  "name": "solana_faucet",
  "instructions": [
    {
      "name": "initialize",
      "accounts": [
        {"name": "admin", "isMut": true, "isSigner": true},
        {"name": "globalState", "isMut": true, "isSigner": false},
        {"name": "vaultWallet", "isMut": true, "isSigner": false},
        {"name": "systemProgram", "isMut": false, "isSigner": false},
        {"name": "rent", "isMut": false, "isSigner": false}
      ],
      "args": [
        {"name": "maxAmountPerDay", "type": "u64"},
        {"name": "vaultWalletBump", "type": "u8"}
      ]
    },
    {
      "name": "updateLimit",
      "accounts": [
        {"name": "admin", "isMut": false, "isSigner": true},
        {"name": "globalState", "isMut": true, "isSigner": false}
      ],
      "args": [
        {"name": "maxAmountPerDay", "type": "u64"}
      ]
    },
    {
      "name": "depositVault",
      "accounts": [
        {"name": "admin", "isMut": true, "isSigner": true},
        {"name": "globalState", "isMut": false, "isSigner": false},
        {"name": "vaultWallet", "isMut": true, "isSigner": false},
        {"name": "systemProgram", "isMut": false, "isSigner": false},
        {"name": "rent", "isMut": false, "isSigner": false}
      ],
      "args": [
        {"name": "amount", "type": "u64"}
      ]
    },
    {
      "name": "withdrawVault",
      "accounts": [
        {"name": "admin", "isMut": true, "isSigner": true},
        {"name": "globalState", "isMut": false, "isSigner": false},
        {"name": "vaultWallet", "isMut": true, "isSigner": false},
        {"name": "systemProgram", "isMut": false, "isSigner": false},
        {"name": "rent", "isMut": false, "isSigner": false}
      ],
      "args": [
        {"name": "amount", "type": "u64"}
      ]
    },
    {
      "name": "initUserPool",
      "accounts": [
        {"name": "payer", "isMut": true, "isSigner": true},
        {"name": "userPool", "isMut": true, "isSigner": false},
        {"name": "systemProgram", "isMut": false, "isSigner": false},
        {"name": "rent", "isMut": false, "isSigner": false}
      ],
      "args": []
    },
    {
      "name": "requestFaucet",
      "accounts": [
        {"name": "payer", "isMut": true, "isSigner": true},
        {"name": "globalState", "isMut": false, "isSigner": false},
        {"name": "vaultWallet", "isMut": true, "isSigner": false},
        {"name": "userPool", "isMut": true, "isSigner": false},
        {"name": "systemProgram", "isMut": false, "isSigner": false},
        {"name": "rent", "isMut": false, "isSigner": false}
      ],
      "args": [
        {"name": "amount", "type": "u64"}
      ]
    }
  ],
  "accounts": [
    {
      "name": "GlobalState",
      "type": {
        "kind": "struct",
        "fields": [
          {"name": "admin", "type": "publicKey"},
          {"name": "maxAmountPerDay", "type": "u64"},
          {"name": "vaultWalletBump", "type": "u8"}
        ]
      }
    },
    {
      "name": "UserPool",
      "type": {
        "kind": "struct",
        "fields": [
          {"name": "owner", "type": "publicKey"},
          {"name": "receivedAmount", "type": "u64"},
          {"name": "requestTime", "type": "i64"}
        ]
      }
    }
  ],
  "errors": [
    {"code": 6000, "name": "InvalidAdmin", "msg": "Invalid Admin Address"},
    {"code": 6001, "name": "RequestTooManyFunds", "msg": "Request Too Many Funds Per Day"},
    {"code": 6002, "name": "InsufficientBalance", "msg": "Insufficient Vault Balance"}
  ]
}`
