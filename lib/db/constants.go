package db

const StateNotFoundError = "state not found"
const DocumentNotFoundError = "document not found"
