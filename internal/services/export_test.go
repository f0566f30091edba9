package services

const MaxAssetBytes = maxAssetBytes
